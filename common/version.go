package common

// PackageName is used as the metrics namespace and default log service tag.
const PackageName = "ondc_onboarding"

// Version is set at build time with -ldflags "-X ...common.Version=v1.2.3".
var Version = "dev"
