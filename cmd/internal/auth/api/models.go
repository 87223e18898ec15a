package authapi

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// userSummary is the user shape returned by register and login.
type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// userProfile is the full user shape returned by me/profile/update-profile.
// Absent phone and id numbers render as "", an absent avatar as null.
type userProfile struct {
	ID                string  `json:"id"`
	Email             string  `json:"email"`
	Name              string  `json:"name"`
	MobileNumber      string  `json:"mobileNumber"`
	AlternativeNumber string  `json:"alternativeNumber"`
	AadharNumber      string  `json:"aadharNumber"`
	Avatar            *string `json:"avatar"`
}

type authResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    userSummary `json:"user"`
}

type profileResponse struct {
	Success bool        `json:"success"`
	User    userProfile `json:"user"`
}

type updateProfileResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    userProfile `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
