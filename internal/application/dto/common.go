package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DocumentClassResponse clase de documento SII.
type DocumentClassResponse struct {
	ID           string `json:"id"`
	Code         int    `json:"code"`
	Name         string `json:"name"`
	DocumentType string `json:"document_type"`
	Electronic   bool   `json:"electronic"`
}
