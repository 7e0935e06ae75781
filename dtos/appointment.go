package dtos

// AppointmentRequest is submitted by both the contact form and the
// quote-request modal. Quote requests must name the service.
type AppointmentRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required,max=30"`
	Subject        string `json:"subject,omitempty" binding:"max=200"`
	Service        string `json:"service,omitempty" binding:"required_if=IsQuoteRequest true,max=100"`
	Date           string `json:"date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Time           string `json:"time,omitempty" binding:"omitempty,datetime=15:04"`
	Message        string `json:"message,omitempty" binding:"max=5000"`
	IsQuoteRequest bool   `json:"isQuoteRequest"`
}

// APIResult is the {success, message} envelope the appointments API answers with.
type APIResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type AppointmentList struct {
	Appointments []Record `json:"appointments"`
}

type AppointmentStatusUpdate struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}
