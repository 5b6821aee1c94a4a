// Package version хранит сведения о сборке cart-service, заполняемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/storefront/internal/version.version=v1.2.3
package version

import "fmt"

// ServiceName — имя сервиса в логах, health-ответах и gRPC user-agent.
const ServiceName = "storefront-cart"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("service=%s version=%s commit=%s date=%s", ServiceName, version, commit, date)
}
