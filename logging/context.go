package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugTagKey struct{}

// EnableDebugMode returns a context under which the C methods of every Logger log at debug level,
// whatever the logger's own level. The tag names the debug session; an empty tag is replaced by a
// random one.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugTagKey{}, tag)
}

// IsDebugMode reports whether ctx came from EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return DebugTag(ctx) != ""
}

// DebugTag returns the tag given to EnableDebugMode, or "".
func DebugTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(debugTagKey{}).(string)
	return tag
}
