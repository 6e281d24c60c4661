// Package cli implements the duniad command surface of spec.md §6,
// using github.com/spf13/cobra instead of the teacher's flag.FlagSet
// switchboard. Grounded on cli/cli.go's CommandLine methods
// (getBalance, send, createBlockChain, printChain, reindexUTXO,
// listAddresses, createWallet, StartNode), each rewired to the rebuilt
// blockchain/wallet/fee/p2p packages.
package cli

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/blockchain"
	"github.com/duniad/duniad/dnsseed"
	"github.com/duniad/duniad/errkind"
	"github.com/duniad/duniad/fee"
	"github.com/duniad/duniad/internal/duniadlog"
	"github.com/duniad/duniad/mempool"
	"github.com/duniad/duniad/nodeid"
	"github.com/duniad/duniad/p2p"
	"github.com/duniad/duniad/peer"
	"github.com/duniad/duniad/store"
	"github.com/duniad/duniad/wallet"
	"github.com/spf13/cobra"
)

var log = duniadlog.NewSubsystem("CLIC")

const feeConfigFileName = "feeconfig.dat"

// NewRootCommand builds the full duniad command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "duniad",
		Short:         "A self-contained UTXO blockchain node",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("passphrase", "", "wallet encryption passphrase (omit for a plaintext wallet file)")

	root.AddCommand(
		newCreateWalletCommand(),
		newListAddressesCommand(),
		newCreateBlockChainCommand(),
		newGetBalanceCommand(),
		newSendCommand(),
		newPrintChainCommand(),
		newReindexUTXOCommand(),
		newStartNodeCommand(),
		newFeeStatusCommand(),
		newEstimateFeeCommand(),
		newSetFeeModeCommand(),
	)
	return root
}

// blocksDir is where this node's block store lives, namespaced by
// NODE_ID per spec.md §4.12.
func blocksDir(id nodeid.Identity) string {
	return filepath.Join(id.DataDir, "blocks")
}

func openStore(id nodeid.Identity) (store.DB, error) {
	if err := os.MkdirAll(blocksDir(id), 0700); err != nil {
		return nil, errkind.Wrap(errkind.StoreError, err, "creating data directory")
	}
	return store.OpenBadger(blocksDir(id))
}

func loadWallets(id nodeid.Identity, passphrase string) (*wallet.Wallets, error) {
	path := id.WalletFile()
	if passphrase != "" {
		return wallet.LoadEncryptedFile(path, passphrase)
	}
	return wallet.LoadFile(path)
}

func saveWallets(ws *wallet.Wallets, id nodeid.Identity, passphrase string) error {
	path := id.WalletFile()
	if passphrase != "" {
		return ws.SaveEncryptedFile(path, passphrase)
	}
	return ws.SaveFile(path)
}

func newCreateWalletCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "createwallet",
		Short: "Create a new wallet and add it to the node's wallet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()
			passphrase, _ := cmd.Flags().GetString("passphrase")

			ws, err := loadWallets(id, passphrase)
			if err != nil {
				return err
			}
			address, err := ws.AddWallet()
			if err != nil {
				return err
			}
			if err := saveWallets(ws, id, passphrase); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Your new address: %s\n", address)
			return nil
		},
	}
}

func newListAddressesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listaddresses",
		Short: "List every address in the node's wallet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()
			passphrase, _ := cmd.Flags().GetString("passphrase")

			ws, err := loadWallets(id, passphrase)
			if err != nil {
				return err
			}
			for _, address := range ws.GetAllAddresses() {
				fmt.Fprintln(cmd.OutOrStdout(), address)
			}
			return nil
		},
	}
}

func newCreateBlockChainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "createblockchain <address>",
		Short: "Initialize the blockchain, paying the genesis subsidy to address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !wallet.ValidateAddress(address) {
				return errkind.New(errkind.InvalidAddress, "invalid address %q", address)
			}
			hash, err := wallet.PubKeyHashFromAddress(address)
			if err != nil {
				return err
			}

			id := nodeid.FromEnvironment()
			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.InitBlockChain(db, hash)
			if err != nil {
				return err
			}
			utxo := &blockchain.UTXOSet{DB: db, Chain: bc}
			if err := utxo.Reindex(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Finished creating blockchain!")
			return nil
		},
	}
}

func newGetBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getbalance <address>",
		Short: "Report an address's confirmed balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !wallet.ValidateAddress(address) {
				return errkind.New(errkind.InvalidAddress, "invalid address %q", address)
			}
			hash, err := wallet.PubKeyHashFromAddress(address)
			if err != nil {
				return err
			}

			id := nodeid.FromEnvironment()
			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.ContinueBlockChain(db)
			if err != nil {
				return err
			}
			utxo := blockchain.UTXOSet{DB: db, Chain: bc}
			outs, err := utxo.FindUTXOs(hash)
			if err != nil {
				return err
			}
			var total amount.Amount
			for _, out := range outs {
				total, err = total.Add(out.Value)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance of '%s': %d\n", address, total)
			return nil
		},
	}
}

func newSendCommand() *cobra.Command {
	var priorityFlag string
	cmd := &cobra.Command{
		Use:   "send <from> <to> <amount> <mine>",
		Short: "Send coins from one address to another",
		Long:  "mine is 0 or 1: 1 mines the transaction into a block on this node immediately; 0 broadcasts it to the network instead.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, amountArg, mineArg := args[0], args[1], args[2], args[3]
			passphrase, _ := cmd.Flags().GetString("passphrase")

			if !wallet.ValidateAddress(from) {
				return errkind.New(errkind.InvalidAddress, "invalid from address %q", from)
			}
			if !wallet.ValidateAddress(to) {
				return errkind.New(errkind.InvalidAddress, "invalid to address %q", to)
			}
			coins, err := parseCoins(amountArg)
			if err != nil {
				return err
			}
			mineNow := mineArg == "1"

			priority, err := fee.ParsePriority(priorityOrDefault(priorityFlag))
			if err != nil {
				return err
			}

			id := nodeid.FromEnvironment()
			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.ContinueBlockChain(db)
			if err != nil {
				return err
			}
			utxo := &blockchain.UTXOSet{DB: db, Chain: bc}

			ws, err := loadWallets(id, passphrase)
			if err != nil {
				return err
			}
			fromWallet, err := ws.GetWallet(from)
			if err != nil {
				return err
			}
			fromHash := wallet.PublicKeyHash(fromWallet.PublicKey)
			toHash, err := wallet.PubKeyHashFromAddress(to)
			if err != nil {
				return err
			}

			engine, err := loadFeeEngine(id)
			if err != nil {
				return err
			}
			txFee, err := engine.Estimate(priority, fee.ReferenceSize)
			if err != nil {
				return err
			}

			tx, err := blockchain.NewTransaction(utxo, &fromWallet.PrivateKey, fromWallet.PublicKey, fromHash, toHash, coins, txFee)
			if err != nil {
				return err
			}

			if mineNow {
				block, err := bc.MineBlock(context.Background(), []*blockchain.Transaction{tx}, txFee, fromHash, utxo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mined block %x\n", block.Hash)
				return nil
			}

			peers := peer.New(0)
			dnsseed.Resolve(peers)
			if id.Address != nodeid.DefaultAddress {
				if err := peers.Add(nodeid.DefaultAddress); err != nil {
					log.Debugf("adding central node as known peer: %v", err)
				}
			}
			server := p2p.New(id, nil, nil, nil, peers, nil)
			if err := server.BroadcastTx(tx, true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transaction broadcast")
			return nil
		},
	}
	cmd.Flags().StringVar(&priorityFlag, "priority", "normal", "fee priority: low, normal, high, urgent")
	return cmd
}

func priorityOrDefault(p string) string {
	if p == "" {
		return "normal"
	}
	return p
}

func parseCoins(s string) (amount.Amount, error) {
	var coins float64
	if _, err := fmt.Sscanf(s, "%f", &coins); err != nil {
		return 0, errkind.Wrap(errkind.InvalidTransaction, err, "parsing amount %q", s)
	}
	return amount.FromCoins(coins)
}

func newPrintChainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "printchain",
		Short: "Print every block from the tip back to genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()
			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.ContinueBlockChain(db)
			if err != nil {
				return err
			}

			hashes, err := bc.GetBlockHashes()
			if err != nil {
				return err
			}
			for _, hash := range hashes {
				b, err := bc.GetBlock(hash)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Height: %d\n", b.Height)
				fmt.Fprintf(cmd.OutOrStdout(), "Prev. hash: %x\n", b.PrevHash)
				fmt.Fprintf(cmd.OutOrStdout(), "Hash: %x\n", b.Hash)
				fmt.Fprintf(cmd.OutOrStdout(), "Difficulty: %d\n", b.Difficulty)
				for _, tx := range b.Transactions {
					fmt.Fprintf(cmd.OutOrStdout(), "Transaction: %x\n", tx.ID)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newReindexUTXOCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindexutxo",
		Short: "Rebuild the UTXO set from the best chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()
			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.ContinueBlockChain(db)
			if err != nil {
				return err
			}
			utxo := &blockchain.UTXOSet{DB: db, Chain: bc}
			if err := utxo.Reindex(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Done! UTXO set reindexed.")
			return nil
		},
	}
}

func newStartNodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "startnode [miner_address]",
		Short: "Start the P2P node, optionally mining to miner_address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()

			var minerHash []byte
			if len(args) == 1 {
				if !wallet.ValidateAddress(args[0]) {
					return errkind.New(errkind.InvalidAddress, "invalid miner address %q", args[0])
				}
				h, err := wallet.PubKeyHashFromAddress(args[0])
				if err != nil {
					return err
				}
				minerHash = h
				log.Infof("mining enabled, rewards to %s", args[0])
			}

			db, err := openStore(id)
			if err != nil {
				return err
			}
			defer db.Close()

			bc, err := blockchain.ContinueBlockChain(db)
			if err != nil {
				return err
			}
			utxo := &blockchain.UTXOSet{DB: db, Chain: bc}

			peers := peer.New(0)
			dnsseed.Resolve(peers)

			server := p2p.New(id, bc, utxo, mempool.New(0), peers, minerHash)
			return server.Listen(context.Background())
		},
	}
}

func newFeeStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "feestatus",
		Short: "Report the active fee mode and per-priority estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()
			engine, err := loadFeeEngine(id)
			if err != nil {
				return err
			}
			status, err := engine.ReportStatus()
			if err != nil {
				return err
			}
			if status.Mode == fee.Fixed {
				fmt.Fprintf(cmd.OutOrStdout(), "mode: fixed (%d satoshi per transaction)\n", status.FixedFee)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "mode: dynamic")
			}
			for _, p := range []fee.Priority{fee.Low, fee.Normal, fee.High, fee.Urgent} {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-6s %d satoshi (at %d bytes)\n", p, status.Estimates[p], fee.ReferenceSize)
			}
			return nil
		},
	}
}

func newEstimateFeeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimatefee <priority>",
		Short: "Estimate the fee for a reference-size transaction at priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := fee.ParsePriority(args[0])
			if err != nil {
				return err
			}
			id := nodeid.FromEnvironment()
			engine, err := loadFeeEngine(id)
			if err != nil {
				return err
			}
			est, err := engine.Estimate(priority, fee.ReferenceSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d satoshi\n", est)
			return nil
		},
	}
}

func newSetFeeModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setfeemode <dynamic|n>",
		Short: "Switch the fee engine to dynamic mode, or a fixed fee of n satoshi",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.FromEnvironment()

			var engine *fee.Engine
			if args[0] == "dynamic" {
				engine = fee.NewDynamic(10, 1000, 100_000)
			} else {
				var n int64
				if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
					return errkind.New(errkind.Config, "invalid fee mode %q: must be \"dynamic\" or an integer satoshi amount", args[0])
				}
				engine = fee.NewFixed(amount.Amount(n))
			}

			if err := saveFeeEngine(id, engine); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Fee mode updated.")
			return nil
		},
	}
}

func feeConfigPath(id nodeid.Identity) string {
	return filepath.Join(id.DataDir, feeConfigFileName)
}

// loadFeeEngine reads the node's persisted fee configuration, defaulting
// to a fixed zero fee (matching the teacher's implicit "transactions
// never pay a fee") if none has been set yet.
func loadFeeEngine(id nodeid.Identity) (*fee.Engine, error) {
	path := feeConfigPath(id)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fee.NewFixed(0), nil
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.Config, err, "reading fee config")
	}

	var engine fee.Engine
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&engine); err != nil {
		return nil, errkind.Wrap(errkind.Config, err, "decoding fee config")
	}
	return &engine, nil
}

func saveFeeEngine(id nodeid.Identity, engine *fee.Engine) error {
	if err := os.MkdirAll(id.DataDir, 0700); err != nil {
		return errkind.Wrap(errkind.Config, err, "creating data directory")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(engine); err != nil {
		return errkind.Wrap(errkind.Config, err, "encoding fee config")
	}
	if err := os.WriteFile(feeConfigPath(id), buf.Bytes(), 0600); err != nil {
		return errkind.Wrap(errkind.Config, err, "writing fee config")
	}
	return nil
}
