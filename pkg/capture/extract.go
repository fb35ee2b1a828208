package capture

import "github.com/joripage/fixsim/pkg/capture/model"

// Tags captured per inbound message kind, applied in order and only when
// present on the message.
var (
	executionReportTags = []model.Tag{
		model.TagClOrdID,
		model.TagOrdStatus,
		model.TagExecType,
		model.TagOrderID,
		model.TagSide,
		model.TagSymbol,
		model.TagOrdType,
		model.TagText,
		model.TagOrderQty,
		model.TagPrice,
		model.TagLastPx,
		model.TagLastQty,
	}

	cancelRejectTags = []model.Tag{
		model.TagClOrdID,
		model.TagOrderID,
		model.TagOrdStatus,
		model.TagOrigClOrdID,
		model.TagText,
	}

	sessionRejectTags = []model.Tag{
		model.TagClOrdID,
		model.TagText,
		model.TagRefSeqNum,
		model.TagRefTagID,
		model.TagRefMsgType,
		model.TagSessionRejectReason,
	}
)

func extract(src model.Fields, tags []model.Tag) model.Fields {
	out := make(model.Fields, len(tags))
	for _, t := range tags {
		if v, ok := src[t]; ok {
			out.Set(t, v)
		}
	}
	return out
}
