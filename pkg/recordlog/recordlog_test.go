package recordlog

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joripage/fixsim/pkg/analytics"
	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []model.EventRecord {
	at := time.Date(2024, 5, 1, 14, 30, 0, 123456789, time.UTC)
	return []model.EventRecord{
		{
			Direction:      model.DirectionSent,
			MessageType:    model.MsgTypeNewOrderSingle,
			SequenceNumber: 2,
			SendingTime:    at,
			Fields: model.Fields{
				model.TagClOrdID:      "00000001",
				model.TagSide:         "1",
				model.TagSymbol:       "AAPL",
				model.TagOrderQty:     "100",
				model.TagPrice:        "150",
				model.TagOrdType:      "2",
				model.TagHandlInst:    "1",
				model.TagTimeInForce:  "0",
				model.TagText:         "NewOrderSingle",
				model.TagTransactTime: "20240501-14:30:00.123",
			},
		},
		{
			Direction:      model.DirectionReceived,
			MessageType:    model.MsgTypeExecutionReport,
			SequenceNumber: 2,
			SendingTime:    at.Add(time.Millisecond),
			Fields: model.Fields{
				model.TagClOrdID:   "00000001",
				model.TagOrderID:   "V1",
				model.TagOrdStatus: "2",
				model.TagExecType:  "F",
				model.TagSide:      "1",
				model.TagSymbol:    "AAPL",
				model.TagLastPx:    "150",
				model.TagLastQty:   "100",
				model.TagText:      "filled, with a comma",
			},
		},
		{
			Direction:   model.DirectionReceived,
			MessageType: model.MsgTypeReject,
			Fields: model.Fields{
				model.TagRefSeqNum:           "3",
				model.TagRefTagID:            "44",
				model.TagSessionRejectReason: "5",
			},
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestCSVRoundTripKeepsControlCharacters(t *testing.T) {
	records := sampleRecords()
	texts := []string{
		"line one\r\nline two",
		"bare\rreturn",
		"\"quoted\" text",
		`"`,
		"tab\tand \\ backslash",
	}
	for _, text := range texts {
		records[1].Fields[model.TagText] = text

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, records))
		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, text, got[1].Fields[model.TagText])
		assert.Equal(t, records, got)
	}
}

func TestReadRejectsBadQuotedValue(t *testing.T) {
	input := "direction,message_type,sequence_number,sending_time,11,58\n" +
		"receive,8,1,,00000001,\"\"\"unterminated\"\n"
	_, err := Read(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrBadRow)
}

func TestCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))

	header := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(header, "direction,message_type,sequence_number,sending_time,11,21,31,32,37"))
	assert.True(t, strings.HasSuffix(header, ",150,371,372,373"))
}

func TestCSVRoundTripKeepsAnalytics(t *testing.T) {
	records := sampleRecords()
	cfg := analytics.Config{ReferencePrices: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(150)}}

	path := filepath.Join(t.TempDir(), "Results", "data.csv")
	require.NoError(t, WriteFile(path, records))
	loaded, err := ReadFile(path)
	require.NoError(t, err)

	before, err := analytics.Run(context.Background(), records, cfg)
	require.NoError(t, err)
	after, err := analytics.Run(context.Background(), loaded, cfg)
	require.NoError(t, err)

	after.GeneratedAt = before.GeneratedAt
	assert.Equal(t, before.Text(), after.Text())
	assert.Equal(t, before.Counts, after.Counts)
	assert.Equal(t, before.Executions, after.Executions)
	assert.True(t, before.Volume.Total.Equal(after.Volume.Total))
}

func TestReadRejectsBadInput(t *testing.T) {
	for name, input := range map[string]string{
		"empty":         "",
		"wrong columns": "dir,type,seq,time\n",
		"unknown tag":   "direction,message_type,sequence_number,sending_time,9999\n",
		"bad direction": "direction,message_type,sequence_number,sending_time,11\nsideways,D,1,,x\n",
		"bad seq":       "direction,message_type,sequence_number,sending_time,11\nsend,D,one,,x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestReadSubsetOfColumns(t *testing.T) {
	input := "direction,message_type,sequence_number,sending_time,55,11\n" +
		"send,D,4,2024-05-01T14:30:00Z,MSFT,00000007\n"
	got, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MSFT", got[0].Symbol())
	assert.Equal(t, "00000007", got[0].CorrelationID())
	assert.Equal(t, 4, got[0].SequenceNumber)
}

func TestJournalSaveLoad(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	records := sampleRecords()
	require.NoError(t, j.Save(ctx, "run-a", records))
	require.NoError(t, j.Save(ctx, "run-b", records[:1]))

	got, err := j.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, runs)

	// same run twice violates the primary key
	assert.Error(t, j.Save(ctx, "run-b", records[:1]))
}
