package catalog

import "fmt"

// Layout is an advisory physical layout directive attached to a table write.
// It never changes query results.
type Layout struct {
	// PartitionBy lists a column whose distinct values each get a partition.
	PartitionBy string

	// BucketBy hashes rows into Buckets buckets by this column.
	BucketBy string
	Buckets  int
}

// IsZero reports whether the layout carries no directive.
func (l Layout) IsZero() bool {
	return l.PartitionBy == "" && l.BucketBy == ""
}

// Validate checks that the layout is internally consistent.
func (l Layout) Validate() error {
	if l.PartitionBy != "" && l.BucketBy != "" {
		return fmt.Errorf("layout: partitioning and bucketing are mutually exclusive")
	}
	if l.BucketBy != "" && l.Buckets < 1 {
		return fmt.Errorf("layout: bucketing by %s needs at least 1 bucket", l.BucketBy)
	}
	return nil
}

// String renders the layout for logs and the run log.
func (l Layout) String() string {
	switch {
	case l.PartitionBy != "":
		return "partition_by=" + l.PartitionBy
	case l.BucketBy != "":
		return fmt.Sprintf("bucket_by=%s buckets=%d", l.BucketBy, l.Buckets)
	default:
		return "none"
	}
}

// PartitionedBy returns a list-partitioning layout.
func PartitionedBy(column string) Layout {
	return Layout{PartitionBy: column}
}

// BucketedBy returns a hash-bucketing layout.
func BucketedBy(column string, buckets int) Layout {
	return Layout{BucketBy: column, Buckets: buckets}
}
