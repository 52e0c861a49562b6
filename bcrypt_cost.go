//go:build !race

package session

func passwordHashCost() int {
	return 12
}
