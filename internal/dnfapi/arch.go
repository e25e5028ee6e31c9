package dnfapi

import "runtime"

// goArchToRPM maps Go architecture names to RPM basearch names.
var goArchToRPM = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7hl",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// HostArch returns the RPM basearch name of the running host.
func HostArch() string {
	if arch, ok := goArchToRPM[runtime.GOARCH]; ok {
		return arch
	}
	return runtime.GOARCH
}
