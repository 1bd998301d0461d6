package password

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certportal/authcore/pkg/config"
	"github.com/certportal/authcore/pkg/errors"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "Sup3rSecret", wantErr: false},
		{name: "too short", password: "Ab1", wantErr: true},
		{name: "no uppercase", password: "sup3rsecret", wantErr: true},
		{name: "no lowercase", password: "SUP3RSECRET", wantErr: true},
		{name: "no digit", password: "SuperSecret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodePasswordComplexity))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := NewPolicy(config.PasswordConfig{
		RequiredLength:         12,
		RequireNonAlphanumeric: true,
	})

	assert.Error(t, policy.Check("Short1!"))
	assert.Error(t, policy.Check("NoSpecialChar1aa"))
	assert.NoError(t, policy.Check("LongEnough!pass1"))
}
