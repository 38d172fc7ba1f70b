package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"spider/calculator"
	"spider/mesh"
	"spider/model"
	"spider/output"
	"spider/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	configs  = flag.String("config", "", "comma separated INI files, each solved independently")
	csvPath  = flag.String("csv", "", "write the trajectory to this CSV file")
	plotPath = flag.String("plot", "", "write the profile plot to this file (.png, .svg, .pdf)")
	profiles = flag.Int("profiles", output.DefaultProfiles, "number of profiles in the plot")
	workers  = flag.Int("workers", runtime.NumCPU(), "parallel runs for several configurations")
	level    = flag.String("log-level", "info", "log level")
	serve    = flag.String("serve", "", "start the websocket server on this address, e.g. :9000")
)

func main() {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(*level)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(lvl)

	if *serve != "" {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
		s := server.NewServer(*serve, upgrader, log.StandardLogger())
		log.Fatal(s.Serve())
	}
	if *configs == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths := strings.Split(*configs, ",")
	params := make([]*model.Parameters, len(paths))
	for i, path := range paths {
		params[i], err = calculator.LoadParameters(strings.TrimSpace(path))
		if err != nil {
			log.WithField("config", path).Fatal(err)
		}
	}

	failed := false
	for _, res := range calculator.Sweep(ctx, params, *workers, log.StandardLogger()) {
		logger := log.WithField("config", paths[res.Index])
		if res.Err != nil {
			logger.WithError(res.Err).Error("solve failed")
			failed = true
			if res.Solution == nil {
				continue
			}
		}
		if err := write(params[res.Index], res.Solution, suffix(res.Index, len(paths))); err != nil {
			logger.WithError(err).Error("write output failed")
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// suffix 多组参数时在输出文件名后加上序号
func suffix(i, n int) string {
	if n == 1 {
		return ""
	}
	return fmt.Sprintf("_%d", i)
}

func withSuffix(path, s string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + s + ext
}

func write(params *model.Parameters, sol *calculator.Solution, s string) error {
	if *csvPath != "" {
		f, err := os.Create(withSuffix(*csvPath, s))
		if err != nil {
			return err
		}
		if err := output.WriteCSV(f, sol); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if *plotPath != "" {
		m, err := mesh.NewUniform(params.Mesh)
		if err != nil {
			return err
		}
		return output.WriteProfilePlot(withSuffix(*plotPath, s), m, sol, *profiles)
	}
	return nil
}
