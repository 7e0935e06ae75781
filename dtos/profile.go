package dtos

// ProfileUpdate is the account form on the profile page. A new password
// needs the current one alongside it.
type ProfileUpdate struct {
	Name            string `json:"name,omitempty" binding:"max=100"`
	CurrentPassword string `json:"currentPassword,omitempty" binding:"required_with=NewPassword"`
	NewPassword     string `json:"newPassword,omitempty" binding:"omitempty,min=8,max=128"`
	ProfileImage    string `json:"profileImage,omitempty" binding:"omitempty,url"`
}

// Empty reports whether the form changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == "" && p.NewPassword == "" && p.ProfileImage == ""
}
