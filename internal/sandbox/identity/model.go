package identity

import (
	"time"

	"github.com/congo-pay/walletgate/internal/model"
)

// RoleUser is granted to every registered account.
const RoleUser = "ROLE_USER"

// User represents a registered account.
type User struct {
	ID            int64
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	PasswordHash  []byte
	Status        model.UserStatus
	EmailVerified bool
	Roles         []string
	CreatedAt     time.Time
}

// View is the wire form of u. The password hash never leaves the service.
func (u User) View() model.User {
	return model.User{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PhoneNumber:   u.PhoneNumber,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		Roles:         append([]string(nil), u.Roles...),
		CreatedAt:     model.NewTime(u.CreatedAt),
	}
}

// Registration is the input of Register.
type Registration struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}
