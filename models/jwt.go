package models

// UploadJWT is the bearer-token claim set accepted by the compress
// endpoint when authentication is enabled.
type UploadJWT struct {
	Issuer    string `json:"iss"` // optional
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
