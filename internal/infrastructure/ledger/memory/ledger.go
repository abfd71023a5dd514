package memory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	"github.com/ArkLabsHQ/lnwatch/utils"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip32"
)

const (
	invoiceExpiry = time.Hour
	// ClaimFee is what claiming an on-chain deposit costs, in sats.
	ClaimFee = int64(150)
)

var ErrNotConnected = fmt.Errorf("ledger not connected")

var (
	_ ports.LedgerClient   = (*Ledger)(nil)
	_ ports.WalletSyncer   = (*Ledger)(nil)
	_ ports.PaymentLister  = (*Ledger)(nil)
	_ ports.DepositClaimer = (*Ledger)(nil)
)

type invoiceEntry struct {
	amount      int64
	description string
	settled     bool
}

// Ledger is an in-memory wallet that behaves like a Lightning node on its
// own: it signs real bolt11 invoices and derives real addresses from the
// mnemonic, but funds only move through Pay, Receive, SettleInvoice and
// ClaimDeposit. The balance survives a disconnect.
type Ledger struct {
	mu sync.Mutex

	connected bool
	network   *chaincfg.Params
	hrp       string
	nodeKey   *btcec.PrivateKey
	addrKey   *bip32.Key
	addrIndex uint32

	balance       int64
	failReads     int
	invoices      map[string]*invoiceEntry
	payments      []domain.Payment
	deposits      []domain.Deposit
	lastSync      time.Time
	routingFeePpm int64
}

func NewLedger(initialBalance int64) *Ledger {
	return &Ledger{
		balance:       initialBalance,
		invoices:      make(map[string]*invoiceEntry),
		routingFeePpm: 1000,
	}
}

func (l *Ledger) Connect(_ context.Context, config domain.ConnectionConfig) error {
	if config.ApiKey == "" {
		return fmt.Errorf("missing api key")
	}
	seed, err := utils.SeedFromMnemonic(config.Mnemonic)
	if err != nil {
		return err
	}

	network := config.Network
	if network == "" {
		network = domain.NetworkRegtest
	}
	params, hrp, err := networkParams(network)
	if err != nil {
		return err
	}

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return fmt.Errorf("unable to derive master key: %v", err)
	}
	nodeKey, err := deriveHardened(master, 1017, 0, 0)
	if err != nil {
		return fmt.Errorf("unable to derive node key: %v", err)
	}
	addrKey, err := deriveHardened(master, 84, params.HDCoinType, 0)
	if err != nil {
		return fmt.Errorf("unable to derive address key: %v", err)
	}
	privKey, _ := btcec.PrivKeyFromBytes(nodeKey.Key)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.connected = true
	l.network = params
	l.hrp = hrp
	l.nodeKey = privKey
	l.addrKey = addrKey
	l.addrIndex = 0

	logrus.Debugf(
		"memory ledger connected on %s, node %x",
		network, privKey.PubKey().SerializeCompressed(),
	)
	return nil
}

func (l *Ledger) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Ledger) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
}

func (l *Ledger) Balance(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return 0, ErrNotConnected
	}
	if l.failReads > 0 {
		l.failReads--
		return 0, fmt.Errorf("balance temporarily unavailable")
	}
	return l.balance, nil
}

// FailBalanceReads makes the next n Balance calls return an error.
func (l *Ledger) FailBalanceReads(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failReads = n
}

func (l *Ledger) NodePubkey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nodeKey == nil {
		return ""
	}
	return hex.EncodeToString(l.nodeKey.PubKey().SerializeCompressed())
}

func (l *Ledger) CreateInvoice(
	_ context.Context, amount int64, description string,
) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid amount %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return "", ErrNotConnected
	}

	var preimage, paymentAddr [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return "", err
	}
	if _, err := rand.Read(paymentAddr[:]); err != nil {
		return "", err
	}
	paymentHash := sha256.Sum256(preimage[:])

	invoice, err := zpay32.NewInvoice(
		l.network, paymentHash, time.Now(),
		zpay32.Amount(lnwire.MilliSatoshi(amount*1000)),
		zpay32.Description(description),
		zpay32.Expiry(invoiceExpiry),
		zpay32.PaymentAddr(paymentAddr),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create invoice: %v", err)
	}

	nodeKey := l.nodeKey
	bolt11, err := invoice.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return ecdsa.SignCompact(nodeKey, chainhash.HashB(msg), true)
		},
	})
	if err != nil {
		return "", fmt.Errorf("unable to encode invoice: %v", err)
	}

	l.invoices[hex.EncodeToString(paymentHash[:])] = &invoiceEntry{
		amount:      amount,
		description: description,
	}
	return bolt11, nil
}

// Pay pays an external invoice out of the balance, charging a routing fee.
// Failures are reported in the result, errors are reserved for a ledger
// that cannot be used at all.
func (l *Ledger) Pay(
	ctx context.Context, invoice string, timeout time.Duration,
) (*domain.PaymentResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decoded, err := utils.DecodeInvoice(invoice)
	if err != nil {
		return &domain.PaymentResult{Error: fmt.Sprintf("invalid invoice: %v", err)}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return &domain.PaymentResult{Error: err.Error()}, nil
	}

	paymentId := hex.EncodeToString(decoded.PaymentHash)
	if _, ok := l.invoices[paymentId]; ok {
		return &domain.PaymentResult{
			PaymentId: paymentId, Error: "cannot pay own invoice",
		}, nil
	}
	if decoded.AmountSats <= 0 {
		return &domain.PaymentResult{
			PaymentId: paymentId, Error: "amountless invoices are not supported",
		}, nil
	}
	if decoded.IsExpired(time.Now()) {
		return &domain.PaymentResult{PaymentId: paymentId, Error: "invoice expired"}, nil
	}
	for _, p := range l.payments {
		if p.Id == paymentId && p.Type == domain.Pay {
			return &domain.PaymentResult{
				PaymentId: paymentId, Error: "invoice already paid",
			}, nil
		}
	}

	fee := l.routingFee(decoded.AmountSats)
	if decoded.AmountSats+fee > l.balance {
		return &domain.PaymentResult{
			PaymentId: paymentId,
			Error: fmt.Sprintf(
				"insufficient balance: %d sats needed, %d available",
				decoded.AmountSats+fee, l.balance,
			),
		}, nil
	}

	var preimage [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return nil, err
	}

	l.balance -= decoded.AmountSats + fee
	l.payments = append(l.payments, domain.Payment{
		Id:          paymentId,
		Amount:      decoded.AmountSats,
		Fee:         fee,
		Timestamp:   time.Now().Unix(),
		Status:      domain.PaymentSuccess,
		Type:        domain.Pay,
		Invoice:     invoice,
		Description: decoded.Description,
	})

	return &domain.PaymentResult{
		Success:   true,
		PaymentId: paymentId,
		Amount:    decoded.AmountSats,
		Fee:       fee,
		Preimage:  hex.EncodeToString(preimage[:]),
	}, nil
}

func (l *Ledger) routingFee(amount int64) int64 {
	return max(amount*l.routingFeePpm/1_000_000, 1)
}

// Receive credits the wallet as if an external payer sent amount sats.
func (l *Ledger) Receive(amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("invalid amount %d", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var id [32]byte
	if _, err := rand.Read(id[:]); err != nil {
		return err
	}
	l.credit(hex.EncodeToString(id[:]), amount, description, "")
	return nil
}

// SettleInvoice simulates an external payer settling one of our invoices.
func (l *Ledger) SettleInvoice(invoice string) error {
	decoded, err := utils.DecodeInvoice(invoice)
	if err != nil {
		return err
	}
	paymentHash := hex.EncodeToString(decoded.PaymentHash)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.invoices[paymentHash]
	if !ok {
		return fmt.Errorf("invoice %s not found", paymentHash)
	}
	if entry.settled {
		return fmt.Errorf("invoice %s already settled", paymentHash)
	}
	entry.settled = true
	l.credit(paymentHash, entry.amount, entry.description, invoice)
	return nil
}

func (l *Ledger) credit(id string, amount int64, description, invoice string) {
	l.balance += amount
	l.payments = append(l.payments, domain.Payment{
		Id:          id,
		Amount:      amount,
		Timestamp:   time.Now().Unix(),
		Status:      domain.PaymentSuccess,
		Type:        domain.Receive,
		Invoice:     invoice,
		Description: description,
	})
}

// Address returns a fresh P2WPKH address on every call.
func (l *Ledger) Address(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return "", ErrNotConnected
	}

	child, err := l.addrKey.NewChildKey(l.addrIndex)
	if err != nil {
		return "", fmt.Errorf("unable to derive address key: %v", err)
	}
	l.addrIndex++

	return p2wpkhAddress(child.PublicKey().Key, l.network)
}

func (l *Ledger) SparkAddress(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return "", ErrNotConnected
	}
	return sparkAddress(l.hrp, l.nodeKey.PubKey().SerializeCompressed())
}

func (l *Ledger) Sync(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrNotConnected
	}
	l.lastSync = time.Now()
	return nil
}

func (l *Ledger) LastSync() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSync
}

// ListPayments returns payments newest first. limit <= 0 means no limit.
func (l *Ledger) ListPayments(
	_ context.Context, offset, limit int,
) ([]domain.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil, ErrNotConnected
	}

	payments := make([]domain.Payment, len(l.payments))
	for i, p := range l.payments {
		payments[len(l.payments)-1-i] = p
	}
	if offset >= len(payments) {
		return []domain.Payment{}, nil
	}
	payments = payments[offset:]
	if limit > 0 && limit < len(payments) {
		payments = payments[:limit]
	}
	return payments, nil
}

// AddDeposit registers an on-chain deposit waiting to be claimed.
func (l *Ledger) AddDeposit(txid string, vout uint32, amount int64) error {
	if _, err := chainhash.NewHashFromStr(txid); err != nil {
		return fmt.Errorf("invalid txid: %v", err)
	}
	if amount <= ClaimFee {
		return fmt.Errorf("deposit amount %d below claim fee", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range l.deposits {
		if d.Txid == txid && d.Vout == vout {
			return fmt.Errorf("deposit %s:%d already exists", txid, vout)
		}
	}
	l.deposits = append(l.deposits, domain.Deposit{
		Txid: txid, Vout: vout, AmountSats: amount,
	})
	return nil
}

func (l *Ledger) ListUnclaimedDeposits(_ context.Context) ([]domain.Deposit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil, ErrNotConnected
	}

	deposits := append([]domain.Deposit{}, l.deposits...)
	sort.SliceStable(deposits, func(i, j int) bool {
		if deposits[i].Txid == deposits[j].Txid {
			return deposits[i].Vout < deposits[j].Vout
		}
		return deposits[i].Txid < deposits[j].Txid
	})
	return deposits, nil
}

// ClaimDeposit sweeps the deposit into the balance and returns the claim
// txid.
func (l *Ledger) ClaimDeposit(
	_ context.Context, txid string, vout uint32, maxFee int64,
) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return "", ErrNotConnected
	}
	if maxFee < ClaimFee {
		return "", fmt.Errorf("claim fee %d exceeds max fee %d", ClaimFee, maxFee)
	}

	for i, d := range l.deposits {
		if d.Txid != txid || d.Vout != vout {
			continue
		}
		l.deposits = append(l.deposits[:i], l.deposits[i+1:]...)

		claimTxid := chainhash.DoubleHashH([]byte(fmt.Sprintf("%s:%d", txid, vout)))
		l.credit(claimTxid.String(), d.AmountSats-ClaimFee, "deposit claim", "")
		return claimTxid.String(), nil
	}
	return "", fmt.Errorf("deposit %s:%d not found", txid, vout)
}
