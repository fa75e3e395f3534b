package store

import "slices"

// TableSchema is the shape of a lead table's header.
type TableSchema int

const (
	// SchemaBasic is the 8-column lead header.
	SchemaBasic TableSchema = iota
	// SchemaPackage is the 15-column header that also carries order fields.
	SchemaPackage
)

// BasicHeader is written when a lead table is first created.
var BasicHeader = []string{
	"Timestamp",
	"Business Name",
	"Business Type",
	"Contact Name",
	"Email",
	"Phone",
	"LINE ID",
	"Date Submitted",
}

// PackageHeader extends BasicHeader in place; the first eight columns never move.
var PackageHeader = append(slices.Clone(BasicHeader),
	"Package",
	"Package Name",
	"Package Price",
	"Verified Amount",
	"Payment Status",
	"Requirements",
	"Additional Info",
)

func (s TableSchema) String() string {
	if s == SchemaPackage {
		return "package"
	}
	return "basic"
}

// Header returns a copy of the canonical header for s.
func (s TableSchema) Header() []string {
	if s == SchemaPackage {
		return slices.Clone(PackageHeader)
	}
	return slices.Clone(BasicHeader)
}

// Width is the number of columns in the canonical header.
func (s TableSchema) Width() int {
	if s == SchemaPackage {
		return len(PackageHeader)
	}
	return len(BasicHeader)
}

// Widen returns the narrowest schema that holds both s and want. It never
// narrows, so calling it again with the same arguments is a no-op.
func (s TableSchema) Widen(want TableSchema) TableSchema {
	if want > s {
		return want
	}
	return s
}

// SchemaOf classifies an existing header. A header counts as the package
// shape only when it is at least 15 columns wide and has a Package column.
func SchemaOf(header []string) TableSchema {
	if len(header) >= len(PackageHeader) && slices.Contains(header, "Package") {
		return SchemaPackage
	}
	return SchemaBasic
}
