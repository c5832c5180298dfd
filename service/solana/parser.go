package solana

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MemoProgramIDLegacy is the v1 memo program. solana-go only exports the
// current SPL memo program.
var MemoProgramIDLegacy = solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")

// System Program instruction types
const (
	SystemProgramTransferInstruction = uint32(2)
)

// Token Program instruction types
const (
	TokenProgramTransferInstruction        = uint8(3)
	TokenProgramTransferCheckedInstruction = uint8(12)
)

// signatureToDomain converts an RPC TransactionSignature to a history record
// carrying only what the signature list reports.
func signatureToDomain(sig *rpc.TransactionSignature) *Transaction {
	txn := &Transaction{
		Signature: sig.Signature.String(),
		Slot:      sig.Slot,
		Memo:      sig.Memo,
	}

	if sig.BlockTime != nil {
		bt := sig.BlockTime.Time().UTC()
		txn.BlockTime = &bt
	}

	if sig.Err != nil {
		errMsg := fmt.Sprintf("transaction failed: %v", sig.Err)
		txn.Err = &errMsg
	}

	return txn
}

// parseTransactionFromResult builds a history record from the signature
// metadata and the full getTransaction result. The raw result is attached
// as-is; transfer details and memo are decoded from the instructions.
func parseTransactionFromResult(sig *rpc.TransactionSignature, result *rpc.GetTransactionResult) (*Transaction, error) {
	txn := signatureToDomain(sig)
	if result == nil {
		return txn, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction payload: %w", err)
	}
	txn.Raw = raw

	if txn.BlockTime == nil && result.BlockTime != nil {
		bt := result.BlockTime.Time().UTC()
		txn.BlockTime = &bt
	}

	// Failed transactions moved no funds.
	if sig.Err != nil || result.Transaction == nil {
		return txn, nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	accountKeys := tx.Message.AccountKeys
	for _, instruction := range tx.Message.Instructions {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			continue
		}
		programID := accountKeys[instruction.ProgramIDIndex]

		switch {
		case programID.Equals(solana.SystemProgramID):
			if amount, fromAddr, err := parseSystemTransferWithSource(instruction, accountKeys); err == nil {
				txn.Amount = amount
				if fromAddr != nil {
					fromStr := fromAddr.String()
					txn.FromAddress = &fromStr
				}
			}

		case programID.Equals(solana.TokenProgramID) || programID.Equals(solana.Token2022ProgramID):
			if amount, mint, fromAddr, err := parseTokenTransferWithSource(instruction, accountKeys); err == nil {
				txn.Amount = amount
				if mint.IsZero() {
					mint = mintFromTokenBalances(result.Meta, instruction)
				}
				if !mint.IsZero() {
					mintStr := mint.String()
					txn.TokenMint = &mintStr
				}
				if fromAddr != nil {
					fromStr := fromAddr.String()
					txn.FromAddress = &fromStr
				}
			}

		case programID.Equals(solana.MemoProgramID) || programID.Equals(MemoProgramIDLegacy):
			if memo := parseMemo(instruction.Data); memo != "" {
				txn.ParsedMemo = &memo
			}
		}
	}

	return txn, nil
}

// parseSystemTransferWithSource extracts the amount and source address from a System Program Transfer instruction.
func parseSystemTransferWithSource(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (uint64, *solana.PublicKey, error) {
	// [0..4]  = instruction type (u32, 2 = Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return 0, nil, fmt.Errorf("instruction data too short: %d bytes", len(instruction.Data))
	}

	instructionType := binary.LittleEndian.Uint32(instruction.Data[0:4])
	if instructionType != SystemProgramTransferInstruction {
		return 0, nil, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	amount := binary.LittleEndian.Uint64(instruction.Data[4:12])

	// accounts: [from, to]
	var fromAddr *solana.PublicKey
	if len(instruction.Accounts) >= 1 && int(instruction.Accounts[0]) < len(accountKeys) {
		addr := accountKeys[instruction.Accounts[0]]
		fromAddr = &addr
	}

	return amount, fromAddr, nil
}

// parseTokenTransferWithSource extracts amount, token mint, and signing
// authority from an SPL Token Transfer or TransferChecked instruction.
// Plain Transfer does not name the mint; the returned mint is zero in that case.
func parseTokenTransferWithSource(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (amount uint64, mint solana.PublicKey, fromAddr *solana.PublicKey, err error) {
	if len(instruction.Data) == 0 {
		return 0, solana.PublicKey{}, nil, fmt.Errorf("empty instruction data")
	}

	switch instruction.Data[0] {
	case TokenProgramTransferInstruction:
		// [0] = 3, [1..9] = amount (u64)
		// accounts: [source, destination, authority]
		if len(instruction.Data) < 9 {
			return 0, solana.PublicKey{}, nil, fmt.Errorf("transfer instruction data too short")
		}
		amount = binary.LittleEndian.Uint64(instruction.Data[1:9])
		if len(instruction.Accounts) >= 3 && int(instruction.Accounts[2]) < len(accountKeys) {
			addr := accountKeys[instruction.Accounts[2]]
			fromAddr = &addr
		}
		return amount, solana.PublicKey{}, fromAddr, nil

	case TokenProgramTransferCheckedInstruction:
		// [0] = 12, [1..9] = amount (u64), [9] = decimals
		// accounts: [source, mint, destination, authority, ...]
		if len(instruction.Data) < 10 {
			return 0, solana.PublicKey{}, nil, fmt.Errorf("transferChecked instruction data too short")
		}
		amount = binary.LittleEndian.Uint64(instruction.Data[1:9])

		if len(instruction.Accounts) < 4 {
			return 0, solana.PublicKey{}, nil, fmt.Errorf("transferChecked missing accounts")
		}
		mintAccountIndex := instruction.Accounts[1]
		if int(mintAccountIndex) >= len(accountKeys) {
			return 0, solana.PublicKey{}, nil, fmt.Errorf("mint account index out of bounds")
		}
		mint = accountKeys[mintAccountIndex]

		if authorityIndex := instruction.Accounts[3]; int(authorityIndex) < len(accountKeys) {
			addr := accountKeys[authorityIndex]
			fromAddr = &addr
		}
		return amount, mint, fromAddr, nil

	default:
		return 0, solana.PublicKey{}, nil, fmt.Errorf("unknown token instruction type: %d", instruction.Data[0])
	}
}

// mintFromTokenBalances resolves the mint of a plain Transfer by looking up
// the source (or destination) token account in the meta token balances.
func mintFromTokenBalances(meta *rpc.TransactionMeta, instruction solana.CompiledInstruction) solana.PublicKey {
	if meta == nil || len(instruction.Accounts) < 2 {
		return solana.PublicKey{}
	}
	candidates := []uint16{instruction.Accounts[0], instruction.Accounts[1]}
	for _, balances := range [][]rpc.TokenBalance{meta.PreTokenBalances, meta.PostTokenBalances} {
		for _, idx := range candidates {
			for _, b := range balances {
				if b.AccountIndex == idx {
					return b.Mint
				}
			}
		}
	}
	return solana.PublicKey{}
}

// parseMemo extracts the memo text from a Memo Program instruction.
// Some clients base64-encode the memo; those are decoded when the result is text.
func parseMemo(data []byte) string {
	memo := string(data)

	if decoded, err := base64.StdEncoding.DecodeString(memo); err == nil && len(decoded) > 0 {
		if isPrintableText(decoded) {
			return string(decoded)
		}
	}

	return memo
}

func isPrintableText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c == 0 || (c < 0x20 && c != '\n' && c != '\t' && c != '\r') {
			return false
		}
	}
	return true
}
