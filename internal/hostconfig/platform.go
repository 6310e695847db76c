package hostconfig

import "runtime"

var (
	goos   = runtime.GOOS
	goarch = runtime.GOARCH
)
