package domain

// Role comes from the identity collaborator; the services trust it and
// never re-verify credentials.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)
