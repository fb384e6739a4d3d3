// Пакет version хранит информацию о сборке сервиса заказов,
// заполняемую через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки по отдельности.
func Info() (v, c, d string) { return version, commit, date }

// String возвращает строку сборки для /healthz и логов запуска.
func String() string {
	return fmt.Sprintf("orders %s (commit %s, built %s)", version, commit, date)
}
