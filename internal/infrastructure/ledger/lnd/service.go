package lnd

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

var (
	ErrServiceNotConnected = fmt.Errorf("lnd service not connected")
)

var (
	_ ports.LedgerClient  = (*service)(nil)
	_ ports.WalletSyncer  = (*service)(nil)
	_ ports.PaymentLister = (*service)(nil)
)

type service struct {
	host        string
	tlsCertPath string
	dialOpts    []grpc.DialOption

	mu       sync.RWMutex
	client   lnrpc.LightningClient
	conn     *grpc.ClientConn
	macaroon string
}

// NewService returns a ledger client backed by an LND node reachable at host.
// The hex encoded macaroon is taken from ConnectionConfig.ApiKey, the node
// keeps its own seed so the mnemonic is ignored. Without a TLS cert the
// connection is not encrypted.
func NewService(
	host, tlsCertPath string, opts ...grpc.DialOption,
) (ports.LedgerClient, error) {
	if host == "" {
		return nil, fmt.Errorf("missing lnd host")
	}
	return &service{
		host:        host,
		tlsCertPath: tlsCertPath,
		dialOpts:    opts,
	}, nil
}

func (s *service) Connect(ctx context.Context, config domain.ConnectionConfig) error {
	if len(config.ApiKey) == 0 {
		return fmt.Errorf("empty macaroon")
	}
	if _, err := hex.DecodeString(config.ApiKey); err != nil {
		return fmt.Errorf("macaroon must be hex encoded: %v", err)
	}

	client, conn, err := s.getClient()
	if err != nil {
		return fmt.Errorf("unable to get client: %v", err)
	}

	info, err := client.GetInfo(getCtx(ctx, config.ApiKey), &lnrpc.GetInfoRequest{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("unable to get info: %v", err)
	}

	if len(info.GetVersion()) == 0 {
		conn.Close()
		return fmt.Errorf("something went wrong, version is empty")
	}

	if len(info.GetIdentityPubkey()) == 0 {
		conn.Close()
		return fmt.Errorf("something went wrong, pubkey is empty")
	}

	if config.Network != "" {
		if network := nodeNetwork(info); network != config.Network {
			conn.Close()
			return fmt.Errorf(
				"network mismatch: node is on %s, expected %s", network, config.Network,
			)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
	s.client = client
	s.conn = conn
	s.macaroon = config.ApiKey

	logrus.Infof(
		"connected to LND version %s with pubkey %s",
		info.GetVersion(), info.GetIdentityPubkey(),
	)

	return nil
}

func (s *service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
	s.client = nil
	s.conn = nil
	s.macaroon = ""
}

func (s *service) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Balance returns the local channel balance, the amount spendable over
// Lightning.
func (s *service) Balance(ctx context.Context) (int64, error) {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := client.ChannelBalance(ctx, &lnrpc.ChannelBalanceRequest{})
	if err != nil {
		return 0, fmt.Errorf("unable to get channel balance: %v", err)
	}
	return int64(resp.GetLocalBalance().GetSat()), nil
}

func (s *service) CreateInvoice(
	ctx context.Context, amount int64, description string,
) (string, error) {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return "", err
	}

	invoiceRequest := &lnrpc.Invoice{
		Value: amount,      // amount in satoshis
		Memo:  description, // optional memo
	}
	resp, err := client.AddInvoice(ctx, invoiceRequest)
	if err != nil {
		return "", fmt.Errorf("unable to add invoice: %v", err)
	}
	return resp.GetPaymentRequest(), nil
}

func (s *service) Pay(
	ctx context.Context, invoice string, timeout time.Duration,
) (*domain.PaymentResult, error) {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// validate invoice
	decodeRequest := &lnrpc.PayReqString{PayReq: invoice}
	if _, err := client.DecodePayReq(ctx, decodeRequest); err != nil {
		return &domain.PaymentResult{Error: fmt.Sprintf("invalid invoice: %v", err)}, nil
	}

	sendRequest := &lnrpc.SendRequest{PaymentRequest: invoice}
	resp, err := client.SendPaymentSync(ctx, sendRequest)
	if err != nil {
		return nil, fmt.Errorf("unable to send payment: %v", err)
	}

	result := &domain.PaymentResult{
		PaymentId: hex.EncodeToString(resp.GetPaymentHash()),
	}
	if paymentErr := resp.GetPaymentError(); paymentErr != "" {
		result.Error = paymentErr
		return result, nil
	}

	route := resp.GetPaymentRoute()
	result.Success = true
	result.Fee = route.GetTotalFeesMsat() / 1000
	result.Amount = (route.GetTotalAmtMsat() - route.GetTotalFeesMsat()) / 1000
	result.Preimage = hex.EncodeToString(resp.GetPaymentPreimage())
	return result, nil
}

func (s *service) Address(ctx context.Context) (string, error) {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.NewAddress(ctx, &lnrpc.NewAddressRequest{
		Type: lnrpc.AddressType_TAPROOT_PUBKEY,
	})
	if err != nil {
		return "", fmt.Errorf("unable to get new address: %v", err)
	}
	return resp.GetAddress(), nil
}

// SparkAddress is always unavailable on LND.
func (s *service) SparkAddress(_ context.Context) (string, error) {
	if !s.IsConnected() {
		return "", ErrServiceNotConnected
	}
	return "", nil
}

// Sync fails while the node has not caught up with the chain.
func (s *service) Sync(ctx context.Context) error {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return err
	}

	info, err := client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return fmt.Errorf("unable to get info: %v", err)
	}
	if !info.GetSyncedToChain() {
		return fmt.Errorf("node not synced to chain, best block %d", info.GetBlockHeight())
	}
	return nil
}

// ListPayments merges outgoing payments and settled invoices, newest first.
func (s *service) ListPayments(
	ctx context.Context, offset, limit int,
) ([]domain.Payment, error) {
	client, ctx, err := s.clientCtx(ctx)
	if err != nil {
		return nil, err
	}

	var maxItems uint64
	if limit > 0 {
		maxItems = uint64(offset + limit)
	}

	paymentsResp, err := client.ListPayments(ctx, &lnrpc.ListPaymentsRequest{
		IncludeIncomplete: true,
		MaxPayments:       maxItems,
		Reversed:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list payments: %v", err)
	}
	invoicesResp, err := client.ListInvoices(ctx, &lnrpc.ListInvoiceRequest{
		NumMaxInvoices: maxItems,
		Reversed:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list invoices: %v", err)
	}

	payments := make([]domain.Payment, 0)
	for _, p := range paymentsResp.GetPayments() {
		payments = append(payments, toPayment(p))
	}
	for _, i := range invoicesResp.GetInvoices() {
		if i.GetState() != lnrpc.Invoice_SETTLED {
			continue
		}
		payments = append(payments, toReceivedPayment(i))
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Timestamp > payments[j].Timestamp
	})

	if offset >= len(payments) {
		return []domain.Payment{}, nil
	}
	payments = payments[offset:]
	if limit > 0 && limit < len(payments) {
		payments = payments[:limit]
	}
	return payments, nil
}

func (s *service) clientCtx(
	ctx context.Context,
) (lnrpc.LightningClient, context.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return nil, nil, ErrServiceNotConnected
	}
	return s.client, getCtx(ctx, s.macaroon), nil
}

func (s *service) getClient() (lnrpc.LightningClient, *grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if s.tlsCertPath != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(s.tlsCertPath, "")
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load tls cert: %v", err)
		}
		creds = tlsCreds
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, s.dialOpts...)
	conn, err := grpc.NewClient(s.host, opts...)
	if err != nil {
		return nil, nil, err
	}
	return lnrpc.NewLightningClient(conn), conn, nil
}

func getCtx(ctx context.Context, macaroon string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "macaroon", macaroon)
}

func nodeNetwork(info *lnrpc.GetInfoResponse) domain.Network {
	for _, chain := range info.GetChains() {
		if network, err := domain.ParseNetwork(chain.GetNetwork()); err == nil {
			return network
		}
	}
	return ""
}

func toPayment(p *lnrpc.Payment) domain.Payment {
	status := domain.PaymentPending
	switch p.GetStatus() {
	case lnrpc.Payment_SUCCEEDED:
		status = domain.PaymentSuccess
	case lnrpc.Payment_FAILED:
		status = domain.PaymentFailed
	}

	return domain.Payment{
		Id:        p.GetPaymentHash(),
		Amount:    p.GetValueSat(),
		Fee:       p.GetFeeSat(),
		Timestamp: time.Unix(0, p.GetCreationTimeNs()).Unix(),
		Status:    status,
		Type:      domain.Pay,
		Invoice:   p.GetPaymentRequest(),
	}
}

func toReceivedPayment(i *lnrpc.Invoice) domain.Payment {
	return domain.Payment{
		Id:          hex.EncodeToString(i.GetRHash()),
		Amount:      i.GetAmtPaidSat(),
		Timestamp:   i.GetSettleDate(),
		Status:      domain.PaymentSuccess,
		Type:        domain.Receive,
		Invoice:     i.GetPaymentRequest(),
		Description: i.GetMemo(),
	}
}
