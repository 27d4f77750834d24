package serverutils

import (
	"errors"
	"strings"
	"testing"

	"trade-intel-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_StartChatBounds(t *testing.T) {
	cases := []struct {
		name    string
		message string
		wantErr bool
	}{
		{"empty rejected", "", true},
		{"one char rejected", "a", true},
		{"two chars accepted", "hi", false},
		{"typical question accepted", "what is the hs code for fresh apples", false},
		{"max length accepted", strings.Repeat("a", 100000), false},
		{"over max rejected", strings.Repeat("a", 100001), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(dto.StartChatRequest{Message: tc.message})
			if tc.wantErr {
				require.Error(t, err)
				var fe *fiber.Error
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, fiber.StatusUnprocessableEntity, fe.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequest_ReportsFailingField(t *testing.T) {
	err := ValidateRequest(dto.StartChatRequest{Message: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message")
}
