// Package vocabulary wires the standard library of source factories
// into a Dictionary, in the same registration order the original
// interpreter's standard_vocab() uses: network/database sources first,
// then repeat/assign, then local/aggregate sources.
package vocabulary

import (
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/source"
)

// Standard returns a Dictionary with every built-in source factory
// registered.
func Standard() *dict.Dictionary {
	d := dict.New()
	d.Add(source.NewSQLFactory())
	d.Add(source.NewMPDFactory())
	d.Add(source.NewSongFactory())
	d.Add(source.NewRepeatFactory())
	d.AddAssign(source.NewAssignFactory())
	d.Add(source.NewSQLInitFactory())
	d.Add(source.NewFilesFactory())
	d.Add(source.NewEmptyFactory())
	d.Add(source.NewUnderscoreFactory())
	d.Add(source.NewEmptiesFactory())
	d.Add(source.NewResetFactory())
	d.Add(source.NewUnionFactory())
	d.Add(source.NewIntersectionFactory())
	d.Add(source.NewItemFactory())
	return d
}
