package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageRef(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		valid bool
	}{
		{
			name:  "well formed",
			ref:   "southamerica-east1-docker.pkg.dev/tribunal-prod/pauta-repo/pauta-pipeline:latest",
			valid: true,
		},
		{
			name:  "versioned tag",
			ref:   "us-central1-docker.pkg.dev/proj/repo/img:v1.2.3",
			valid: true,
		},
		{
			name:  "missing tag",
			ref:   "southamerica-east1-docker.pkg.dev/tribunal-prod/pauta-repo/pauta-pipeline",
			valid: false,
		},
		{
			name:  "wrong host",
			ref:   "docker.io/library/alpine:3.20",
			valid: false,
		},
		{
			name:  "missing repository segment",
			ref:   "southamerica-east1-docker.pkg.dev/tribunal-prod/pauta-pipeline:latest",
			valid: false,
		},
		{
			name:  "spaces in image",
			ref:   "southamerica-east1-docker.pkg.dev/tribunal-prod/pauta-repo/bad image:latest",
			valid: false,
		},
		{
			name:  "empty",
			ref:   "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageRef(tt.ref)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
