package common

// PackageName is used to namespace metrics and log tags.
const PackageName = "toolstate_pipeline"

// Version is set at build time via -ldflags.
var Version = "dev"
