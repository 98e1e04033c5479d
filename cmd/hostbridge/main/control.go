/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"hostbridge.io/hostbridge/pkg/configmanager"
	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/wasm"
)

var (
	cmdStart = cli.Command{
		Name:  "start",
		Usage: "start the hostbridge process",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   "config, c",
				Usage:  "Load configuration from `FILE`",
				EnvVar: "HOSTBRIDGE_CONFIG",
				Value:  "configs/hostbridge_config.json",
			}, cli.StringFlag{
				Name:   "log-level, l",
				Usage:  "hostbridge log level, TRACE|DEBUG|INFO|WARN|ERROR|FATAL",
				EnvVar: "LOG_LEVEL",
			},
		},
		Action: func(c *cli.Context) error {
			configPath := c.String("config")

			conf, err := configmanager.Load(configPath)
			if err != nil {
				log.StartLogger.Errorf("[hostbridge] [start] load config fail: %+v", err)
				os.Exit(1)
			}

			logLevel := conf.LogLevel
			if flagLogLevel := c.String("log-level"); flagLogLevel != "" {
				logLevel = flagLogLevel
			}

			if err := log.InitDefaultLogger(conf.LogPath, log.ParseLogLevel(logLevel)); err != nil {
				log.StartLogger.Errorf("[hostbridge] [start] init logger fail: %v", err)
				os.Exit(1)
			}

			manager := wasm.GetBridgeManager()
			for i := range conf.Bridges {
				if err := manager.AddOrUpdateBridge(conf.Bridges[i]); err != nil {
					log.DefaultLogger.Errorf("[hostbridge] [start] install bridge %v fail: %v",
						conf.Bridges[i].PluginName, err)
					os.Exit(1)
				}
			}

			log.DefaultLogger.Infof("[hostbridge] [start] %v bridge(s) running", len(conf.Bridges))

			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			sig := <-ch

			log.DefaultLogger.Infof("[hostbridge] [start] got signal %v, shutting down", sig)

			for i := range conf.Bridges {
				manager.UninstallBridgeByName(conf.Bridges[i].PluginName)
			}

			return nil
		},
	}

	cmdStop = cli.Command{
		Name:  "stop",
		Usage: "stop the hostbridge process",
		Action: func(c *cli.Context) error {
			return nil
		},
	}
)
