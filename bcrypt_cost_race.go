//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordHashCost is lowered under the race detector, which makes
// bcrypt slow enough to trip test timeouts.
const DefaultPasswordHashCost = bcrypt.MinCost

func passwordHashCost() int {
	return DefaultPasswordHashCost
}
