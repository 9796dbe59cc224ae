package ch

import "testing"

func TestBuildClientInfo(t *testing.T) {
	t.Parallel()
	ci := BuildClientInfo("run", "")
	got := map[string]string{}
	for _, p := range ci.Products {
		got[p.Name] = p.Version
	}
	if got["role"] != "run" || got["tag"] != "-" || got["murmur"] == "" {
		t.Fatalf("products = %v", got)
	}
	if len(got["commit"]) > 7 {
		t.Fatalf("commit not shortened: %q", got["commit"])
	}
}
