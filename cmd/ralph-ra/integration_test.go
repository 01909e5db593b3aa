package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// E2EAllocTestSpec represents a single end-to-end allocation test case
type E2EAllocTestSpec struct {
	Name         string   `yaml:"name"`
	Target       string   `yaml:"target,omitempty"` // catalog under testdata/catalogs
	Args         []string `yaml:"args,omitempty"`   // extra command-line flags
	Input        string   `yaml:"input"`            // YAML listing
	Expect       []string `yaml:"expect"`           // Strings that must appear in output
	ExpectOrder  []string `yaml:"expect_order"`     // Strings that must appear in this order
	ExpectUnique []string `yaml:"expect_unique"`    // Strings that must appear exactly once
	ExpectNot    []string `yaml:"expect_not"`       // Strings that must NOT appear in output
	Skip         string   `yaml:"skip,omitempty"`
}

// E2EAllocTestFile represents the e2e_alloc.yaml file structure
type E2EAllocTestFile struct {
	Tests []E2EAllocTestSpec `yaml:"tests"`
}

// TestE2EAllocYAML runs ralph-ra over the listings in testdata/e2e_alloc.yaml
func TestE2EAllocYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e_alloc.yaml")
	if err != nil {
		t.Fatalf("e2e_alloc.yaml not found: %v", err)
	}

	var testFile E2EAllocTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e_alloc.yaml: %v", err)
	}
	if len(testFile.Tests) == 0 {
		t.Fatal("e2e_alloc.yaml has no tests")
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			listing := filepath.Join(t.TempDir(), "listing.yaml")
			if err := os.WriteFile(listing, []byte(tc.Input), 0644); err != nil {
				t.Fatalf("failed to write listing: %v", err)
			}

			args := append([]string(nil), tc.Args...)
			if tc.Target != "" {
				args = append(args, "--target", filepath.Join("../../testdata/catalogs", tc.Target))
			}
			args = append(args, listing)

			output, errOut, err := execute(t, args...)
			if err != nil {
				t.Fatalf("ralph-ra failed: %v\nStderr: %s", err, errOut)
			}

			// Check that all expected strings appear in output
			for _, exp := range tc.Expect {
				if !strings.Contains(output, exp) {
					t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
				}
			}

			// Check that strings appear in specified order
			if len(tc.ExpectOrder) > 0 {
				rest := output
				for _, exp := range tc.ExpectOrder {
					idx := strings.Index(rest, exp)
					if idx == -1 {
						t.Errorf("expected %q after the previous pattern\nGot:\n%s", exp, output)
						break
					}
					rest = rest[idx+len(exp):]
				}
			}

			// Check that strings appear exactly once
			for _, exp := range tc.ExpectUnique {
				if count := strings.Count(output, exp); count != 1 {
					t.Errorf("expected %q to appear exactly once, found %d times\nGot:\n%s", exp, count, output)
				}
			}

			// Check that strings do NOT appear
			for _, exp := range tc.ExpectNot {
				if strings.Contains(output, exp) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", exp, output)
				}
			}
		})
	}
}

// TestE2EAllocRewritesEveryOperand checks that no virtual operand survives
// allocation in any e2e case
func TestE2EAllocRewritesEveryOperand(t *testing.T) {
	data, err := os.ReadFile("../../testdata/e2e_alloc.yaml")
	if err != nil {
		t.Fatalf("e2e_alloc.yaml not found: %v", err)
	}
	var testFile E2EAllocTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse e2e_alloc.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			listing := filepath.Join(t.TempDir(), "listing.yaml")
			if err := os.WriteFile(listing, []byte(tc.Input), 0644); err != nil {
				t.Fatal(err)
			}
			args := []string{listing}
			if tc.Target != "" {
				args = append([]string{"--target", filepath.Join("../../testdata/catalogs", tc.Target)}, args...)
			}
			output, _, err := execute(t, args...)
			if err != nil {
				t.Fatal(err)
			}
			for _, line := range strings.Split(output, "\n") {
				if strings.HasPrefix(line, "#") {
					continue
				}
				if strings.Contains(line, ":long") || strings.Contains(line, ":int") || strings.Contains(line, ":double") || strings.Contains(line, ":char") {
					t.Errorf("virtual operand left in %q", line)
				}
			}
		})
	}
}
