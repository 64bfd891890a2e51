package client

import "github.com/wolfeidau/certifychain/internal/session"

// MinPasswordLength matches the registration rule enforced by the API.
const MinPasswordLength = 8

// AuthResponse is returned by sign in and sign up.
type AuthResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    *session.Identity `json:"user"`
	Profile *session.Profile  `json:"profile"`
}

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DomainProgress is a per-domain certificate tally.
type DomainProgress struct {
	Name             string  `json:"name"`
	CertificateCount int     `json:"certificate_count"`
	TotalWeightage   float64 `json:"total_weightage"`
}

// RankPoint is a monthly rank history entry.
type RankPoint struct {
	Month string `json:"month"`
	Rank  int    `json:"rank"`
}

// ProfileResponse is returned by the profile endpoint. The session only
// consumes Profile.
type ProfileResponse struct {
	Profile     *session.Profile `json:"profile"`
	Domains     []DomainProgress `json:"domains"`
	RankHistory []RankPoint      `json:"rank_history"`
}

// DashboardStats summarises the user's standing.
type DashboardStats struct {
	TotalWeightage    float64 `json:"total_weightage"`
	TotalCertificates int     `json:"total_certificates"`
	CurrentRank       int     `json:"current_rank"`
}

// RecentCertificate is a short certificate entry on the dashboard.
type RecentCertificate struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	UploadDate string `json:"upload_date"`
}

// Dashboard is returned by the dashboard endpoint.
type Dashboard struct {
	Stats              DashboardStats      `json:"stats"`
	RecentCertificates []RecentCertificate `json:"recent_certificates"`
	DomainProgress     []DomainProgress    `json:"domain_progress"`
}

// Certificate is an uploaded certificate.
type Certificate struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Issuer          string  `json:"issuer"`
	Category        string  `json:"category"`
	Domain          string  `json:"domain"`
	Weightage       float64 `json:"weightage"`
	Status          string  `json:"status"`
	UploadDate      string  `json:"upload_date"`
	CertificateFile string  `json:"certificate_file"`
}

// CertificateFilter narrows a certificate listing. Empty fields are ignored.
type CertificateFilter struct {
	Search string
	Domain string
	Status string
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Email            string  `json:"user__email"`
	TotalWeightage   float64 `json:"cert_total_weightage"`
	CertificateCount int     `json:"certificate_count"`
	CurrentRank      int     `json:"current_rank"`
}
