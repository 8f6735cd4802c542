// Package metrics содержит Prometheus-коллекторы оркестратора.
//
// Каждый файл регистрирует свои коллекторы в init() через register();
// MustRegister() регистрирует их в Prometheus один раз при старте процесса.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register вызывается из init() каждого файла пакета.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister регистрирует все коллекторы в DefaultRegisterer ровно один раз.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
