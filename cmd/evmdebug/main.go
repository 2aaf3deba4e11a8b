// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vmlayer/engine/environment"
	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/log"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/state"
	"github.com/vmlayer/engine/vm"
)

var (
	version   string
	gitCommit string
)

var (
	codeFlag = cli.StringFlag{
		Name:  "code",
		Usage: "contract bytecode to run, hex-encoded (0x-prefixed)",
	}
	inputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "calldata passed to the contract, hex-encoded",
	}
	gasFlag = cli.Uint64Flag{
		Name:  "gas",
		Value: 10_000_000,
		Usage: "gas limit for the call",
	}
	valueFlag = cli.Uint64Flag{
		Name:  "value",
		Usage: "wei value sent with the call",
	}
	createFlag = cli.BoolFlag{
		Name:  "create",
		Usage: "treat code as initcode and run a CREATE instead of a CALL",
	}
	specFlag = cli.StringFlag{
		Name:  "spec",
		Value: "prague",
		Usage: "hard-fork spec id to run under",
	}
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return version + "-" + gitCommit
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "evmdebug",
		Usage:   "standalone driver for the engine: run one bytecode program against an in-memory database",
		Flags:   []cli.Flag{codeFlag, inputFlag, gasFlag, valueFlag, createFlag, specFlag},
		Action:  run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "evmdebug:", err)
		os.Exit(1)
	}
}

func specByName(name string) (gas.SpecID, error) {
	switch name {
	case "frontier":
		return gas.Frontier, nil
	case "prague":
		return gas.Prague, nil
	case "latest":
		return gas.Latest, nil
	default:
		return 0, fmt.Errorf("evmdebug: unknown spec id %q", name)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr)))

	code, err := hexutil.Decode(ensure0x(c.String(codeFlag.Name)))
	if err != nil {
		return fmt.Errorf("evmdebug: decoding --code: %w", err)
	}
	input, err := hexutil.Decode(ensure0x(c.String(inputFlag.Name)))
	if err != nil && c.String(inputFlag.Name) != "" {
		return fmt.Errorf("evmdebug: decoding --input: %w", err)
	}

	specID, err := specByName(c.String(specFlag.Name))
	if err != nil {
		return err
	}

	db := state.NewMemDB()
	callee := common.Address{1}
	if err := db.SetAccount(callee, state.Account{Code: code}); err != nil {
		return fmt.Errorf("evmdebug: seeding account: %w", err)
	}

	block := environment.BlockContext{
		GasLimit: c.Uint64(gasFlag.Name),
		GetHash:  func(uint64) primitives.Hash { return primitives.Hash{} },
	}
	tx := environment.TxContext{
		Origin:   common.Address{2},
		GasPrice: uint256.NewInt(1),
		ChainID:  uint256.NewInt(1),
	}

	e := vm.New(db, block, vm.Config{SpecID: specID})

	value := uint256.NewInt(c.Uint64(valueFlag.Name))
	var target *primitives.Address
	if !c.Bool(createFlag.Name) {
		target = &callee
	}

	result, deployed, err := e.Call(tx, target, value, input, c.Uint64(gasFlag.Name))
	printResult(result, deployed, err)
	return nil
}

func ensure0x(s string) string {
	if s == "" {
		return "0x"
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s
	}
	return "0x" + s
}

func printResult(result primitives.ExecutionResult, deployed primitives.Address, err error) {
	fmt.Printf("outcome:      %v\n", outcomeName(result))
	fmt.Printf("gas_used:     %d\n", result.GasUsed)
	fmt.Printf("gas_limit:    %d\n", result.GasLimit)
	fmt.Printf("output:       %s\n", hexutil.Encode(result.Output))
	if result.IsSuccess() {
		fmt.Printf("gas_refunded: %d\n", result.GasRefunded)
		fmt.Printf("logs:         %d\n", len(result.Logs))
		if deployed != (primitives.Address{}) {
			fmt.Printf("deployed:     %s\n", deployed.Hex())
		}
	}
	if result.IsHalt() {
		fmt.Printf("halt_reason:  %s\n", result.HaltReason)
	}
	if err != nil {
		fmt.Printf("error:        %v\n", err)
	}
}

func outcomeName(r primitives.ExecutionResult) string {
	switch {
	case r.IsSuccess():
		return r.SuccessReason.String()
	case r.IsRevert():
		return "Revert"
	case r.IsHalt():
		return "Halt"
	default:
		return "FatalExternalError"
	}
}
