//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

func composeProvider(t *testing.T, ctx context.Context, action string) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", action, "sandbox")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose %s sandbox failed: %v\n%s", action, err, string(out))
	}
}
