package settlement

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/models"
)

const debtorBIC = "VLTBANK1"

// BuildPacs008 builds an FI-to-FI customer credit transfer message for an
// outbound transaction leg. The beneficiary fields captured on the pending
// leg identify the creditor side.
func BuildPacs008(txn *models.Transaction) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if txn.BeneficiaryBankCode == "" {
		return nil, fmt.Errorf("transaction %s has no beneficiary bank code", txn.ID)
	}

	msgID := uuid.New().String()
	now := time.Now()
	settlementDate := now
	amount := txn.Amount.InexactFloat64()

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgID),
			CreDtTm: common.ISODateTime(now),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(txn.Currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(txn.ID)}[0],
					EndToEndId: common.Max35Text(txn.ID),
					TxId:       &[]common.Max35Text{common.Max35Text(txn.ID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(txn.Currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(debtorBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(txn.FromAccountID)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(txn.BeneficiaryBankCode),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(txn.BeneficiaryName)}[0],
				},
			},
		},
	}

	return doc, nil
}

// SendToSettlement serializes the message and hands it to the settlement
// endpoint. TODO: replace the log sink with the clearing-house client once
// its sandbox credentials are provisioned.
func SendToSettlement(doc *pacs_v08.FIToFICustomerCreditTransferV08) error {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	logger.Log.Info("sending pacs.008 to settlement",
		zap.String("msgId", string(doc.GrpHdr.MsgId)),
		zap.Int("bytes", len(xmlData)))
	return nil
}
