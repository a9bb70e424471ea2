package lens

import (
	"fmt"
	"io"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// LENS RESOLUTION
// Precedence: explicit flag > LENS_ID env > application config default >
// opt-in dev fallback. No lens means a fatal configuration error.
// =============================================================================

// DevFallbackLens is only used when the caller explicitly allows it.
const DevFallbackLens = "dev"

// ResolveInput carries the candidate lens sources in precedence order.
type ResolveInput struct {
	Flag             string // --lens value
	Env              string // LENS_ID
	ConfigDefault    string // application config default_lens
	AllowDevFallback bool   // --allow-default-lens
}

// Resolve picks the lens id by precedence. When the dev fallback is taken, a
// warning naming the fallback lens is written to warn (dev/test only).
func Resolve(in ResolveInput, warn io.Writer) (string, error) {
	switch {
	case in.Flag != "":
		return in.Flag, nil
	case in.Env != "":
		return in.Env, nil
	case in.ConfigDefault != "":
		return in.ConfigDefault, nil
	case in.AllowDevFallback:
		if warn != nil {
			fmt.Fprintf(warn, "warning: no lens configured, falling back to %q (dev/test only)\n", DevFallbackLens)
		}
		return DevFallbackLens, nil
	default:
		return "", core.ConfigError("no lens configured: pass --lens, set LENS_ID, or configure default_lens")
	}
}
