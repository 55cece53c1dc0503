package app

const (
	ServiceName    = "college-erp"
	ServiceVersion = "1.0.0"
)
