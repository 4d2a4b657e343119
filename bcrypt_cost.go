//go:build !race

package auth

// DefaultPasswordHashCost is the bcrypt cost used when none is configured
const DefaultPasswordHashCost = 12

func passwordHashCost() int {
	return DefaultPasswordHashCost
}
