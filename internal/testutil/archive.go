package testutil

import "testing"

// FetchArchivedSolution reads an archived solution object back from the
// bucket, failing the test if retrieval fails.
func FetchArchivedSolution(t *testing.T, env *TestEnvironment, key string) []byte {
	t.Helper()
	data, err := env.Archive.Get(env.Ctx, key)
	if err != nil {
		t.Fatalf("failed to fetch archived solution %s: %v", key, err)
	}
	return data
}
