package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTotalDue(t *testing.T) {
	o := &Order{
		ProductPaymentAmount: 3000,
		DeliveryFee:          DeliveryFee,
	}
	assert.Equal(t, int64(6000), o.TotalDue())
}

func TestOrderDetailLineAmount(t *testing.T) {
	d := &OrderDetail{PurchasePrice: 1000, Quantity: 3}
	assert.Equal(t, int64(3000), d.LineAmount())
}

func TestOrderDetailByID(t *testing.T) {
	o := &Order{
		Details: []OrderDetail{
			{ID: 10, ItemID: 1},
			{ID: 11, ItemID: 2},
		},
	}

	d := o.DetailByID(11)
	assert.NotNil(t, d)
	assert.Equal(t, uint(2), d.ItemID)

	// 返回的是聚合内的指针，修改会反映到聚合上
	d.Status = StatusPaymentCompleted
	assert.Equal(t, StatusPaymentCompleted, o.Details[1].Status)

	assert.Nil(t, o.DetailByID(99), "不存在的明细应该返回nil")
}

// TestAssignCancelRefund 挂载取消/退货时两侧字段同时回填
func TestAssignCancelRefund(t *testing.T) {
	d := &OrderDetail{ID: 7}

	c := &Cancel{RefundAmount: 6000}
	d.AssignCancel(c)
	assert.Equal(t, uint(7), c.OrderDetailID)
	assert.Same(t, c, d.Cancel)

	d2 := &OrderDetail{ID: 8}
	r := &Refund{RefundAmount: 1000}
	d2.AssignRefund(r)
	assert.Equal(t, uint(8), r.OrderDetailID)
	assert.Same(t, r, d2.Refund)

	rc := &Recall{RetrieverName: "洪吉童"}
	r.ID = 5
	r.AssignRecall(rc)
	assert.Equal(t, uint(5), rc.RefundID)
	assert.Same(t, rc, r.Recall)
}

func TestRecipientFullAddress(t *testing.T) {
	r := &OrderRecipient{
		ZipCode:       "13120",
		Address:       "京畿道城南市",
		DetailAddress: "801号",
	}
	assert.Equal(t, "(13120) 京畿道城南市 801号", r.FullAddress())
}
