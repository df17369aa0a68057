// next-augment 调用大模型端点，从文本段落生成 SFT 与偏好对齐训练数据
//
// 用法:
//
//	next-augment run   [-config path] [-mode single-sft] [-input data.jsonl] ...
//	next-augment serve [-config path]
//	next-augment ping  [-config path] [-model name] [-base-url url]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ashwinyue/next-augment/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: next-augment <command> [flags]

Commands:
  run     run one generation job and write CSV/JSONL artifacts
  serve   start the web UI and job API
  ping    check that the model endpoint is reachable

Run "next-augment <command> -h" for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "ping":
		err = pingCommand(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// configFlag 注册 -config，默认取 CONFIG_PATH 环境变量
func configFlag(fs *flag.FlagSet) *string {
	def := os.Getenv("CONFIG_PATH")
	if def == "" {
		def = "./configs/config.yaml"
	}
	return fs.String("config", def, "path to the YAML config file")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
