package pg

import "fmt"

// HalfvecType returns the SQL type name for a halfvec of the given dimension.
func HalfvecType(dim int) string {
	return fmt.Sprintf("halfvec(%d)", dim)
}
