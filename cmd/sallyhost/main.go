package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/enarx/sallyport-go/config"
	"github.com/enarx/sallyport-go/host"

	"github.com/edsrzf/mmap-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Info("sallyhost starting...")

	cfgPath := "sallyport.toml"
	if p := os.Getenv("SALLYPORT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg := config.Default()
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logrus.Fatalf("failed to load config %s: %v", cfgPath, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f, err := os.OpenFile(shmPath(cfg.Host.ShmName), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		logrus.Fatalf("shm: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(int64(cfg.Host.BlockSize)); err != nil {
		logrus.Fatalf("shm: truncate: %v", err)
	}

	block, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		logrus.Fatalf("shm: mmap: %v", err)
	}
	defer block.Unmap()
	logrus.Infof("shared block: %s (%d bytes)", cfg.Host.ShmName, cfg.Host.BlockSize)

	metrics := host.NewMetrics()
	prometheus.MustRegister(metrics)
	dispatcher := host.New(logrus.StandardLogger(), metrics)

	if cfg.Host.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Host.MetricsAddr, Handler: mux}
		go func() {
			logrus.Infof("metrics listening on %s", cfg.Host.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("metrics server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	trigger, triggers, err := host.ListenTrigger(triggerSocketPath(cfg.Host.ShmName))
	if err != nil {
		logrus.Fatalf("trigger: %v", err)
	}
	defer trigger.Close()

	logrus.Infof("dispatcher ready, trigger port %#x", cfg.Host.TriggerPort)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("sallyhost stopped.")
			return
		case conn, ok := <-triggers:
			if !ok {
				logrus.Info("sallyhost stopped.")
				return
			}
			if err := dispatcher.Execute(block); err != nil {
				logrus.WithError(err).Warn("rejected malformed block")
			}
			host.Ack(conn)
		}
	}
}

func shmPath(name string) string {
	return "/dev/shm" + name
}

func triggerSocketPath(shmName string) string {
	return "/tmp" + shmName + ".trigger"
}
