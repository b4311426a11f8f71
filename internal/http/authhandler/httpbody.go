package authhandler

type RegisterBody struct {
	Username     string `form:"username"     json:"username"     binding:"required"`
	Email        string `form:"email"        json:"email"`
	Password     string `form:"password"     json:"password"     binding:"required"`
	Confirmation string `form:"confirmation" json:"confirmation"`
} // @name RegisterRequest

type LoginBody struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
} // @name LoginRequest

// MessageResponse is the re-rendered auth form with its status line.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
} // @name MessageResponse
