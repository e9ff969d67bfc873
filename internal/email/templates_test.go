package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTicketConfirmationBody_ListsAllNumbers(t *testing.T) {
	body := BuildTicketConfirmationBody("Ana", []int{42, 987654, 3})

	assert.Contains(t, body, "Ana")
	assert.Contains(t, body, "#000042")
	assert.Contains(t, body, "#987654")
	assert.Contains(t, body, "#000003")
}

func TestBuildTicketConfirmationBody_ShowsQuantity(t *testing.T) {
	body := BuildTicketConfirmationBody("Bea", []int{1, 2, 3, 4, 5})

	assert.Contains(t, body, ">5</span>")
}
