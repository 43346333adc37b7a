package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPacs008(t *testing.T) {
	t.Run("carries transaction and beneficiary details", func(t *testing.T) {
		txn := pendingTransfer()

		doc, err := BuildPacs008(txn)
		assert.NoError(t, err)
		assert.NotEmpty(t, doc.GrpHdr.MsgId)
		assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))

		assert.Len(t, doc.CdtTrfTxInf, 1)
		info := doc.CdtTrfTxInf[0]
		assert.Equal(t, "txn-1", string(info.PmtId.EndToEndId))
		assert.Equal(t, "INR", string(info.IntrBkSttlmAmt.Ccy))
		assert.InDelta(t, 1500.00, info.IntrBkSttlmAmt.Value, 0.001)
		assert.Equal(t, "HDFC", string(info.CdtrAgt.FinInstnId.ClrSysMmbId.MmbId))
		assert.Equal(t, "Asha Rao", string(*info.Cdtr.Nm))
	})

	t.Run("requires beneficiary bank code", func(t *testing.T) {
		txn := pendingTransfer()
		txn.BeneficiaryBankCode = ""

		_, err := BuildPacs008(txn)
		assert.Error(t, err)
	})
}

func TestSendToSettlement(t *testing.T) {
	doc, err := BuildPacs008(pendingTransfer())
	assert.NoError(t, err)
	assert.NoError(t, SendToSettlement(doc))
}
