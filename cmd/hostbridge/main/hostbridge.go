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
	"time"

	"github.com/urfave/cli"

	_ "hostbridge.io/hostbridge/pkg/wasm/abi/bridge010"
	_ "hostbridge.io/hostbridge/pkg/wasm/runtime/wasmer"
)

var Version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "hostbridge"
	app.Version = Version
	app.Compiled = time.Now()
	app.Usage = "hostbridge runs wasm sandboxes against the host binding surface."

	//commands
	app.Commands = []cli.Command{
		cmdStart,
		cmdStop,
	}

	//action
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)

		c.App.Setup()
		return nil
	}

	_ = app.Run(os.Args)
}
