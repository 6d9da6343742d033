package dto

type CreateUserInput struct {
	Username  string   `json:"username" binding:"required,min=3,max=50"`
	Email     string   `json:"email" binding:"required,email"`
	Role      string   `json:"role" binding:"required,oneof=DONOR NGO VOLUNTEER ADMIN"`
	Latitude  *float64 `json:"lat" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"lng" binding:"omitempty,gte=-180,lte=180"`
	Address   string   `json:"address" binding:"max=500"`
}

type ListUsersQuery struct {
	Role string `form:"role" binding:"required,oneof=DONOR NGO VOLUNTEER ADMIN"`
}
