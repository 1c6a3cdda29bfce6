package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientFilterEffective(t *testing.T) {
	cases := []struct {
		description string
		filter      ClientFilter
		field       FilterField
		value       string
		ok          bool
	}{
		{
			description: "no filter",
			ok:          false,
		},
		{
			description: "first name only",
			filter:      ClientFilter{FirstName: String("Toby")},
			field:       FilterFirstName,
			value:       "Toby",
			ok:          true,
		},
		{
			description: "last supplied filter wins",
			filter:      ClientFilter{FirstName: String("Nick"), Email: String("r.williams@outlook.com")},
			field:       FilterEmail,
			value:       "r.williams@outlook.com",
			ok:          true,
		},
		{
			description: "phone is evaluated last",
			filter: ClientFilter{
				FirstName: String("Nick"),
				LastName:  String("Nolte"),
				Email:     String("n.nolte@gmail.com"),
				Phone:     String("13108503770"),
			},
			field: FilterPhone,
			value: "13108503770",
			ok:    true,
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			field, value, ok := c.filter.Effective()
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.field, field)
			assert.Equal(t, c.value, value)
		})
	}
}

func TestClientChangesEmpty(t *testing.T) {
	assert.True(t, ClientChanges{}.Empty())
	assert.False(t, ClientChanges{Phone: String("79991117799")}.Empty())
}

func TestCheckLength(t *testing.T) {
	assert.NoError(t, CheckLength("phone", "131027963121234", MaxPhoneLength))
	assert.NoError(t, CheckLength("last_name", strings.Repeat("ё", MaxNameLength), MaxNameLength), "limits count characters, not bytes")

	err := CheckLength("phone", "1310279631212345", MaxPhoneLength)
	assert.ErrorIs(t, err, ErrValueTooLong)
	assert.ErrorContains(t, err, "phone exceeds 15 characters")
}
