package version

const (
	ProductName = "flowio"
	Version     = "0.1.2"
)
