package asm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ListingFile is the YAML form of a program:
//
//	functions:
//	  - name: f
//	    code: |
//	      mov v1:long <- $1
//	      ret <- v1:long
type ListingFile struct {
	Functions []ListingFunction `yaml:"functions"`
}

// ListingFunction is one function of a ListingFile.
type ListingFunction struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// LoadListingFile reads a YAML listing from disk.
func (p *Parser) LoadListingFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.LoadListing(data)
}

// LoadListing decodes a YAML listing and parses every function in it.
func (p *Parser) LoadListing(data []byte) (*Program, error) {
	var f ListingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	prog := &Program{}
	for _, lf := range f.Functions {
		fn, err := p.ParseFunction(lf.Name, lf.Code)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}
