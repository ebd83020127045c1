//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every package in the module.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Produces the testbed binary at bin/penumbra.
func (Build) Demo() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/penumbra", "."), withStream()); err != nil {
		return err
	}
	return nil
}
