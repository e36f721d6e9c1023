package version

// Version of the studyhall binaries. Release builds set it with:
//
//	go build -ldflags="-X 'github.com/BioHazard786/Studyhall/internal/version.Version=v1.0.0'"
var Version = "dev"
