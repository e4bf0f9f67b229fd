package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
	"github.com/urfave/cli/v2"
)

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "the url of the crowdsale daemon",
		Value:   "http://localhost:7070",
		EnvVars: []string{"CROWDSALE_URL"},
	}
	adminUserFlag = &cli.StringFlag{
		Name:    "admin-user",
		Usage:   "the admin username",
		Value:   "admin",
		EnvVars: []string{"CROWDSALE_ADMIN_USER"},
	}
	adminPasswordFlag = &cli.StringFlag{
		Name:    "admin-password",
		Usage:   "the admin password",
		EnvVars: []string{"CROWDSALE_ADMIN_PASSWORD"},
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "the account address",
		Required: true,
	}
	addressesFileFlag = &cli.StringFlag{
		Name:  "addresses-file",
		Usage: "path to a file listing one address per line",
	}
	sortedFlag = &cli.BoolFlag{
		Name:  "sorted",
		Usage: "sort the leaves before building the merkle tree",
	}
	pricesFlag = &cli.StringSliceFlag{
		Name:     "prices",
		Usage:    "the price of one token in each round, in USDT",
		Required: true,
	}
	addressesFlag = &cli.StringSliceFlag{
		Name:  "addresses",
		Usage: "the addresses to whitelist",
	}
	merkleRootFlag = &cli.StringFlag{
		Name:  "root",
		Usage: "the merkle root to publish",
	}
)

// commands
var (
	infoCmd = &cli.Command{
		Name:   "info",
		Usage:  "Get info about the crowdsale",
		Action: infoAction,
	}
	balanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "Get the token and quote balances of an account",
		Action: balanceAction,
		Flags:  []cli.Flag{addressFlag},
	}
	proofCmd = &cli.Command{
		Name:   "proof",
		Usage:  "Compute the merkle root of a list of addresses and the proof of one of them",
		Action: proofAction,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Usage: "the address to prove"},
			&cli.StringFlag{
				Name: addressesFileFlag.Name, Usage: addressesFileFlag.Usage, Required: true,
			},
			sortedFlag,
		},
	}
	switchRoundCmd = &cli.Command{
		Name:   "switch-round",
		Usage:  "Close the current round once its time is over or its cap sold out",
		Action: switchRoundAction,
	}
	initCmd = &cli.Command{
		Name:   "init",
		Usage:  "Set the round prices and open round 1",
		Action: initAction,
		Flags:  []cli.Flag{pricesFlag},
	}
	whitelistCmd = &cli.Command{
		Name:   "whitelist",
		Usage:  "Whitelist addresses for round 1",
		Action: whitelistAction,
		Flags:  []cli.Flag{addressesFlag, addressesFileFlag},
	}
	rootCmd = &cli.Command{
		Name:   "root",
		Usage:  "Publish the merkle root gating the proof rounds",
		Action: rootAction,
		Flags:  []cli.Flag{merkleRootFlag, addressesFileFlag, sortedFlag},
	}
	collectCmd = &cli.Command{
		Name:   "collect",
		Usage:  "Collect unsold tokens and proceeds once the sale is over",
		Action: collectAction,
	}
)

func infoAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/info", ctx.String(urlFlag.Name))
	info, err := get[map[string]interface{}](url, "", "")
	if err != nil {
		return err
	}
	return printJSON(info)
}

func balanceAction(ctx *cli.Context) error {
	baseURL := ctx.String(urlFlag.Name)
	address := ctx.String(addressFlag.Name)

	tokens, err := get[map[string]string](
		fmt.Sprintf("%s/v1/balances/%s", baseURL, address), "", "",
	)
	if err != nil {
		return err
	}
	quote, err := get[map[string]string](
		fmt.Sprintf("%s/v1/quote/balances/%s", baseURL, address), "", "",
	)
	if err != nil {
		return err
	}

	return printJSON(map[string]string{
		"address":        address,
		"tokens":         tokens["balance"],
		"quote":          quote["balance"],
		"quoteAllowance": quote["allowance"],
	})
}

func proofAction(ctx *cli.Context) error {
	tree, err := buildTree(ctx.String(addressesFileFlag.Name), ctx.Bool(sortedFlag.Name))
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"root":   tree.Root().Hex(),
		"leaves": tree.NumberOfLeaves(),
	}
	if address := ctx.String("address"); address != "" {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid address %s", address)
		}
		proof, err := tree.Proof(common.HexToAddress(address))
		if err != nil {
			return err
		}
		out["address"] = common.HexToAddress(address).Hex()
		out["proof"] = proof.Strings()
	}
	return printJSON(out)
}

func switchRoundAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/rounds/switch", ctx.String(urlFlag.Name))
	resp, err := post[map[string]interface{}](url, nil, "", "")
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func initAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/init", ctx.String(urlFlag.Name))
	body := map[string]interface{}{"prices": ctx.StringSlice(pricesFlag.Name)}
	if _, err := post[struct{}](
		url, body, ctx.String(adminUserFlag.Name), ctx.String(adminPasswordFlag.Name),
	); err != nil {
		return err
	}

	fmt.Println("crowdsale initialized")
	return nil
}

func whitelistAction(ctx *cli.Context) error {
	addresses := ctx.StringSlice(addressesFlag.Name)
	if path := ctx.String(addressesFileFlag.Name); path != "" {
		fromFile, err := readAddresses(path)
		if err != nil {
			return err
		}
		for _, addr := range fromFile {
			addresses = append(addresses, addr.Hex())
		}
	}
	if len(addresses) <= 0 {
		return fmt.Errorf("missing addresses")
	}

	url := fmt.Sprintf("%s/v1/admin/whitelist", ctx.String(urlFlag.Name))
	body := map[string]interface{}{"addresses": addresses}
	resp, err := post[map[string]int](
		url, body, ctx.String(adminUserFlag.Name), ctx.String(adminPasswordFlag.Name),
	)
	if err != nil {
		return err
	}

	fmt.Printf("whitelisted %d new addresses\n", resp["added"])
	return nil
}

func rootAction(ctx *cli.Context) error {
	root := ctx.String(merkleRootFlag.Name)
	if path := ctx.String(addressesFileFlag.Name); path != "" {
		if root != "" {
			return fmt.Errorf("--root and --addresses-file are mutually exclusive")
		}
		tree, err := buildTree(path, ctx.Bool(sortedFlag.Name))
		if err != nil {
			return err
		}
		root = tree.Root().Hex()
	}
	if root == "" {
		return fmt.Errorf("missing merkle root")
	}

	url := fmt.Sprintf("%s/v1/admin/merkle-root", ctx.String(urlFlag.Name))
	body := map[string]interface{}{"root": root}
	if _, err := post[struct{}](
		url, body, ctx.String(adminUserFlag.Name), ctx.String(adminPasswordFlag.Name),
	); err != nil {
		return err
	}

	fmt.Printf("published merkle root %s\n", root)
	return nil
}

func collectAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/collect", ctx.String(urlFlag.Name))
	resp, err := post[map[string]string](
		url, nil, ctx.String(adminUserFlag.Name), ctx.String(adminPasswordFlag.Name),
	)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func buildTree(path string, sorted bool) (*merkle.Tree, error) {
	addresses, err := readAddresses(path)
	if err != nil {
		return nil, err
	}
	if sorted {
		return merkle.NewSortedTree(addresses)
	}
	return merkle.NewTree(addresses)
}

// readAddresses parses a file with one address per line, skipping blank
// lines and lines starting with #.
func readAddresses(path string) ([]common.Address, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// nolint:all
	defer file.Close()

	addresses := make([]common.Address, 0)
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !common.IsHexAddress(text) {
			return nil, fmt.Errorf("invalid address %q at line %d", text, line)
		}
		addresses = append(addresses, common.HexToAddress(text))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func post[T any](url string, body interface{}, user, password string) (result T, err error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return result, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest("POST", url, reader)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	return do[T](req, user, password)
}

func get[T any](url, user, password string) (result T, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	return do[T](req, user, password)
}

func do[T any](req *http.Request, user, password string) (result T, err error) {
	if len(user) > 0 {
		req.SetBasicAuth(user, password)
	}
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode >= 300 {
		err = fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(buf))
		return
	}
	if len(buf) <= 0 {
		return
	}
	err = json.Unmarshal(buf, &result)
	return
}
