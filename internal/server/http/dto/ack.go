package dto

// Acknowledgement is the webhook endpoint response body.
type Acknowledgement struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}
