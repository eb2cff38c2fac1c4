package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"airdroptracker/internal/contracts"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"
)

// EthClient talks to the deployed NFTAirdropTracker contract. Construct one
// at process start and inject it everywhere; it holds the long-lived RPC
// connection, signer and bound contract.
type EthClient struct {
	client         *ethclient.Client
	contract       *bind.BoundContract
	abi            abi.ABI
	address        common.Address
	chainID        *big.Int
	transacts      *bind.TransactOpts
	signerAddress  common.Address
	confirmTimeout time.Duration
	log            zerolog.Logger
}

type EthClientConfig struct {
	RPCURL          string
	PrivateKeyHex   string
	ContractAddress string
	ConfirmTimeout  time.Duration
	Logger          zerolog.Logger
}

const defaultConfirmTimeout = 90 * time.Second

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("contract address is required")
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for submitting transactions")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contracts.AirdropTrackerABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	bound := bind.NewBoundContract(address, parsedABI, cli, cli, cli)

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	confirm := cfg.ConfirmTimeout
	if confirm <= 0 {
		confirm = defaultConfirmTimeout
	}

	return &EthClient{
		client:         cli,
		contract:       bound,
		abi:            parsedABI,
		address:        address,
		chainID:        chainID,
		transacts:      txOpts,
		signerAddress:  crypto.PubkeyToAddress(pk.PublicKey),
		confirmTimeout: confirm,
		log:            cfg.Logger,
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// submitTransaction is the single mutation path: submit, wait for one
// receipt, interpret its status. A mined-but-reverted transaction returns
// TxResult{Success: false} with a nil error; a submission failure returns
// an error and no result.
func (c *EthClient) submitTransaction(ctx context.Context, action, method string, args ...interface{}) (TxResult, error) {
	opts := *c.transacts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("transaction submission failed")
		return TxResult{}, fmt.Errorf("%s: %w", action, err)
	}

	hash := tx.Hash().Hex()
	c.log.Info().Str("action", action).Str("tx_hash", hash).Msg("transaction submitted")

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	// Past Transact the transaction is in flight: every wait failure —
	// deadline, caller cancel, receipt poll error — is an unknown outcome
	// carrying the hash, never a plain error that looks like a failed
	// submission.
	receipt, err := waitForReceipt(waitCtx, c.client, tx.Hash())
	if err != nil {
		c.log.Warn().Err(err).Str("action", action).Str("tx_hash", hash).Msg("confirmation wait failed, outcome unknown")
		return TxResult{}, &OutcomeUnknownError{TxHash: hash, Cause: err}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		c.log.Error().Str("action", action).Str("tx_hash", hash).Msg("transaction reverted")
		return TxResult{Success: false, TxHash: hash}, nil
	}

	c.log.Info().
		Str("action", action).
		Str("tx_hash", hash).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Msg("transaction confirmed")

	return TxResult{
		Success:     true,
		TxHash:      hash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (c *EthClient) call(ctx context.Context, method string, out *[]interface{}, args ...interface{}) error {
	return c.contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...)
}

func (c *EthClient) DoesProjectExist(ctx context.Context, projectID string) (bool, error) {
	var out []interface{}
	if err := c.call(ctx, "doesProjectExist", &out, projectID); err != nil {
		return false, fmt.Errorf("doesProjectExist %s: %w", projectID, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *EthClient) GetClaimState(ctx context.Context, projectID, userID string) (ClaimState, error) {
	var out []interface{}
	if err := c.call(ctx, "getClaimState", &out, projectID, userID); err != nil {
		return 0, fmt.Errorf("getClaimState %s/%s: %w", projectID, userID, err)
	}
	raw := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	return DecodeClaimState(uint64(raw))
}

func (c *EthClient) GetEligibleUsersForAirdrop(ctx context.Context, projectID string) ([]string, error) {
	var out []interface{}
	if err := c.call(ctx, "getEligibleUsersForAirdrop", &out, projectID); err != nil {
		return nil, fmt.Errorf("getEligibleUsersForAirdrop %s: %w", projectID, err)
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

func (c *EthClient) CheckProjectAuthorization(ctx context.Context, projectID, address string) (bool, error) {
	var out []interface{}
	if err := c.call(ctx, "checkProjectAuthorization", &out, projectID, common.HexToAddress(address)); err != nil {
		return false, fmt.Errorf("checkProjectAuthorization %s: %w", projectID, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *EthClient) GetNFTInfo(ctx context.Context, projectID string) (NFTInfo, error) {
	var out []interface{}
	if err := c.call(ctx, "getNFTInfo", &out, projectID); err != nil {
		return NFTInfo{}, fmt.Errorf("getNFTInfo %s: %w", projectID, err)
	}
	addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	tokenID := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	return NFTInfo{
		ContractAddress: addr.Hex(),
		TokenID:         tokenID.String(),
	}, nil
}

func (c *EthClient) WalletBalance(ctx context.Context, address string) (Balance, error) {
	if !common.IsHexAddress(address) {
		return Balance{}, fmt.Errorf("invalid wallet address: %s", address)
	}
	wei, err := c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return Balance{}, fmt.Errorf("balance of %s: %w", address, err)
	}
	return Balance{Address: address, Wei: wei, Eth: weiToEth(wei)}, nil
}

func (c *EthClient) CreateProject(ctx context.Context, projectID, nftContractAddress, tokenID string) (TxResult, error) {
	if !common.IsHexAddress(nftContractAddress) {
		return TxResult{}, fmt.Errorf("invalid nft contract address: %s", nftContractAddress)
	}
	token, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return TxResult{}, fmt.Errorf("invalid token id: %s", tokenID)
	}
	action := fmt.Sprintf("create project %s (%s #%s)", projectID, nftContractAddress, tokenID)
	return c.submitTransaction(ctx, action, "createProject", projectID, common.HexToAddress(nftContractAddress), token)
}

func (c *EthClient) RecordClaim(ctx context.Context, projectID, userID string) (TxResult, error) {
	action := fmt.Sprintf("record claim for user %s in project %s", userID, projectID)
	return c.submitTransaction(ctx, action, "recordClaim", projectID, userID)
}

func (c *EthClient) RecordWalletAddress(ctx context.Context, userID, walletAddress string) (TxResult, error) {
	if !common.IsHexAddress(walletAddress) {
		return TxResult{}, fmt.Errorf("invalid wallet address: %s", walletAddress)
	}
	action := fmt.Sprintf("record wallet %s for user %s", walletAddress, userID)
	return c.submitTransaction(ctx, action, "recordWalletAddress", userID, common.HexToAddress(walletAddress))
}

// UpdateEligibleUsersForAirdrop reads authorization and NFT metadata for the
// audit log before submitting the recompute transaction. The reads are
// advisory only; their failure never gates the write.
func (c *EthClient) UpdateEligibleUsersForAirdrop(ctx context.Context, projectID string) (TxResult, error) {
	if authorized, err := c.CheckProjectAuthorization(ctx, projectID, c.signerAddress.Hex()); err != nil {
		c.log.Warn().Err(err).Str("project_id", projectID).Msg("authorization probe failed")
	} else {
		c.log.Info().Str("project_id", projectID).Str("signer", c.signerAddress.Hex()).Bool("authorized", authorized).Msg("project authorization")
	}

	if info, err := c.GetNFTInfo(ctx, projectID); err != nil {
		c.log.Warn().Err(err).Str("project_id", projectID).Msg("nft info probe failed")
	} else {
		c.log.Info().Str("project_id", projectID).Str("nft_contract", info.ContractAddress).Str("token_id", info.TokenID).Msg("nft info")
	}

	action := fmt.Sprintf("update eligible users for project %s", projectID)
	return c.submitTransaction(ctx, action, "updateEligibleUsersForAirdrop", projectID)
}

func (c *EthClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := c.client.BlockNumber(ctx)
	return err
}

// waitForReceipt polls until the transaction is mined or the context ends.
func waitForReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func weiToEth(wei *big.Int) string {
	eth := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := eth.FloatString(18)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
