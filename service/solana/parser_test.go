package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSig = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

func sigMeta(err any) *rpc.TransactionSignature {
	bt := solana.UnixTimeSeconds(1700000000)
	return &rpc.TransactionSignature{Signature: testSig, Slot: 100, BlockTime: &bt, Err: err}
}

// memoInstruction is a minimal solana.Instruction for the SPL memo program.
type memoInstruction struct {
	text   string
	signer solana.PublicKey
}

func (m memoInstruction) ProgramID() solana.PublicKey { return solana.MemoProgramID }
func (m memoInstruction) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{solana.Meta(m.signer).SIGNER()}
}
func (m memoInstruction) Data() ([]byte, error) { return []byte(m.text), nil }

func TestParseTransaction_NativeTransferRoundTrip(t *testing.T) {
	from := newKey(t)
	to := newKey(t)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			mustSystemTransfer(t, 1_500_000_000, from, to),
			memoInstruction{text: "rent for march", signer: from},
		},
		solana.Hash{},
		solana.TransactionPayer(from),
	)
	require.NoError(t, err)

	txn, err := parseTransactionFromResult(sigMeta(nil), makeTransactionResult(t, tx, ""))
	require.NoError(t, err)

	assert.Equal(t, testSig.String(), txn.Signature)
	assert.Equal(t, uint64(1_500_000_000), txn.Amount)
	assert.Nil(t, txn.TokenMint)
	require.NotNil(t, txn.FromAddress)
	assert.Equal(t, from.String(), *txn.FromAddress)
	require.NotNil(t, txn.ParsedMemo)
	assert.Equal(t, "rent for march", *txn.ParsedMemo)
	require.NotNil(t, txn.BlockTime)
	assert.Equal(t, int64(1700000000), txn.BlockTime.Unix())
	assert.NotEmpty(t, txn.Raw)
}

func TestParseTransaction_TokenTransferResolvesMintFromMeta(t *testing.T) {
	owner := newKey(t)
	mint := newKey(t)
	src := newKey(t)
	dst := newKey(t)

	ix, err := token.NewTransferInstruction(2_500_000, src, dst, owner, []solana.PublicKey{}).ValidateAndBuild()
	require.NoError(t, err)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(owner))
	require.NoError(t, err)

	srcIndex := -1
	for i, k := range tx.Message.AccountKeys {
		if k.Equals(src) {
			srcIndex = i
		}
	}
	require.GreaterOrEqual(t, srcIndex, 0)

	meta := fmt.Sprintf(`{"err":null,"fee":5000,"preBalances":[],"postBalances":[],
		"preTokenBalances":[{"accountIndex":%d,"mint":%q,"uiTokenAmount":{"amount":"3000000","decimals":6,"uiAmount":3,"uiAmountString":"3"}}],
		"postTokenBalances":[]}`, srcIndex, mint)

	txn, err := parseTransactionFromResult(sigMeta(nil), makeTransactionResult(t, tx, meta))
	require.NoError(t, err)

	assert.Equal(t, uint64(2_500_000), txn.Amount)
	require.NotNil(t, txn.TokenMint)
	assert.Equal(t, mint.String(), *txn.TokenMint)
	require.NotNil(t, txn.FromAddress)
	assert.Equal(t, owner.String(), *txn.FromAddress)
}

func TestParseTransaction_TransferChecked(t *testing.T) {
	source := newKey(t)
	mint := newKey(t)
	dest := newKey(t)
	authority := newKey(t)

	data := make([]byte, 10)
	data[0] = TokenProgramTransferCheckedInstruction
	binary.LittleEndian.PutUint64(data[1:9], 1_000_000)
	data[9] = 6

	tx := &solana.Transaction{
		Message: solana.Message{
			Header:      solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys: []solana.PublicKey{authority, source, mint, dest, solana.TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 4, Accounts: []uint16{1, 2, 3, 0}, Data: data},
			},
		},
	}

	txn, err := parseTransactionFromResult(sigMeta(nil), makeTransactionResult(t, tx, ""))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), txn.Amount)
	require.NotNil(t, txn.TokenMint)
	assert.Equal(t, mint.String(), *txn.TokenMint)
	require.NotNil(t, txn.FromAddress)
	assert.Equal(t, authority.String(), *txn.FromAddress)
}

func TestParseTransaction_FailedKeepsMetadata(t *testing.T) {
	sig := sigMeta(map[string]any{"InstructionError": []any{0, "InsufficientFunds"}})

	txn, err := parseTransactionFromResult(sig, &rpc.GetTransactionResult{Slot: 100})
	require.NoError(t, err)
	require.NotNil(t, txn.Err)
	assert.Contains(t, *txn.Err, "transaction failed")
	assert.Zero(t, txn.Amount)
	assert.NotEmpty(t, txn.Raw)
}

func TestParseTransaction_NilResult(t *testing.T) {
	txn, err := parseTransactionFromResult(sigMeta(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, testSig.String(), txn.Signature)
	assert.Nil(t, txn.Raw)
}

func TestSignatureToDomain(t *testing.T) {
	now := solana.UnixTimeSeconds(time.Now().Unix())
	memo := "[12] invoice 42"

	txn := signatureToDomain(&rpc.TransactionSignature{
		Signature: testSig,
		Slot:      12345,
		BlockTime: &now,
		Memo:      &memo,
	})

	assert.Equal(t, testSig.String(), txn.Signature)
	assert.Equal(t, uint64(12345), txn.Slot)
	require.NotNil(t, txn.BlockTime)
	assert.True(t, now.Time().Equal(*txn.BlockTime))
	assert.Equal(t, &memo, txn.Memo)
	assert.Nil(t, txn.Err)

	noTime := signatureToDomain(&rpc.TransactionSignature{Signature: testSig})
	assert.Nil(t, noTime.BlockTime)
}

func TestParseMemo(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "plain text", data: []byte("test payment"), want: "test payment"},
		{name: "base64 text", data: []byte(base64.StdEncoding.EncodeToString([]byte("secret message"))), want: "secret message"},
		{name: "json", data: []byte(`{"order": 7}`), want: `{"order": 7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseMemo(tt.data))
		})
	}
}

func TestParseSystemTransferWithSource_Errors(t *testing.T) {
	keys := []solana.PublicKey{newKey(t), newKey(t)}

	_, _, err := parseSystemTransferWithSource(solana.CompiledInstruction{Data: []byte{2, 0, 0}}, keys)
	assert.Error(t, err)

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 0) // CreateAccount
	_, _, err = parseSystemTransferWithSource(solana.CompiledInstruction{Accounts: []uint16{0, 1}, Data: data}, keys)
	assert.Error(t, err)
}

func TestParseTokenTransferWithSource_Errors(t *testing.T) {
	keys := []solana.PublicKey{newKey(t), newKey(t), newKey(t), newKey(t)}

	tests := []struct {
		name string
		ix   solana.CompiledInstruction
	}{
		{name: "empty data", ix: solana.CompiledInstruction{}},
		{name: "short transfer", ix: solana.CompiledInstruction{Data: []byte{TokenProgramTransferInstruction, 1}}},
		{name: "short transferChecked", ix: solana.CompiledInstruction{Data: make([]byte, 9)}},
		{name: "unknown type", ix: solana.CompiledInstruction{Data: []byte{7, 0, 0, 0, 0, 0, 0, 0, 0}}},
		{name: "transferChecked missing accounts", ix: solana.CompiledInstruction{
			Accounts: []uint16{0, 1},
			Data:     append([]byte{TokenProgramTransferCheckedInstruction}, make([]byte, 9)...),
		}},
	}
	tests[2].ix.Data[0] = TokenProgramTransferCheckedInstruction

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := parseTokenTransferWithSource(tt.ix, keys)
			assert.Error(t, err)
		})
	}
}
