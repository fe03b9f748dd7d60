package reconciler

import (
	"regexp"

	"github.com/relatorhq/relator/pkg/config"
)

// imageRefPattern matches region-docker.pkg.dev/project/repository/image:tag
var imageRefPattern = regexp.MustCompile(
	`^[a-z][a-z0-9-]*-docker\.pkg\.dev/[a-z][a-z0-9-]*/[a-z0-9][a-z0-9._-]*/[a-z0-9][a-z0-9._-]*:[A-Za-z0-9._-]+$`)

// ValidateImageRef checks the structural shape of a composed image reference
// before any remote call is made. A malformed reference is a configuration
// error, never a mid-deployment surprise.
func ValidateImageRef(ref string) error {
	if !imageRefPattern.MatchString(ref) {
		return config.Errorf("malformed image reference %q (want region-docker.pkg.dev/project/repository/image:tag)", ref)
	}
	return nil
}
