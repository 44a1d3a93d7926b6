package hmistyle

// Tag data types as declared in tag databases.
const (
	TypeBool   = "BOOL"
	TypeInt    = "INT"
	TypeDint   = "DINT"
	TypeReal   = "REAL"
	TypeString = "STRING"
)

// typeAliases collapses internal type names to their canonical wire form.
var typeAliases = map[string]string{
	"INT":  "INT16",
	"DINT": "INT32",
	"REAL": "REAL",
	"BOOL": "BOOL",
}

// NormalizeType converts an internal data type to its standardized form.
func NormalizeType(dataType string) string {
	if normalized, ok := typeAliases[dataType]; ok {
		return normalized
	}
	return dataType
}

// TypesCompatible reports whether two data types are compatible after
// normalization.
func TypesCompatible(a, b string) bool {
	return NormalizeType(a) == NormalizeType(b)
}
