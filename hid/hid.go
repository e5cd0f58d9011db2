// Package hid contains HID wire-level constants shared by the report codecs
// and the concrete transport channels.
package hid

// USB HID class requests (bRequest)
const (
	RequestGetReport = 0x01
	RequestGetIdle   = 0x02
	RequestSetReport = 0x09
	RequestSetIdle   = 0x0A
)

// HID report types (high byte of wValue in class requests)
const (
	ReportTypeInput   = 0x01
	ReportTypeOutput  = 0x02
	ReportTypeFeature = 0x03
)

// bmRequestType values for HID class requests on an interface
const (
	RequestTypeClassInterfaceIn  = 0xA1
	RequestTypeClassInterfaceOut = 0x21
)

// Bluetooth HIDP transaction headers (first byte of an L2CAP HID frame).
// The DATA headers double as the CRC seed bytes for CRC32-framed reports.
const (
	TransactionDataInput       = 0xA1 // DATA | INPUT, prefixes inbound reports
	TransactionDataOutput      = 0xA2 // DATA | OUTPUT, prefixes outbound reports
	TransactionSetReportOutput = 0x52 // SET_REPORT | OUTPUT
	TransactionGetReportInput  = 0x49 // GET_REPORT | INPUT
)

// Known controller vendor/product IDs
const (
	VendorSony = 0x054C

	ProductDualShock3   = 0x0268
	ProductDualShock4   = 0x05C4
	ProductDualShock4V2 = 0x09CC
)

// ReportValue builds the wValue for a GetReport/SetReport class request.
func ReportValue(reportType, reportID uint8) uint16 {
	return uint16(reportType)<<8 | uint16(reportID)
}
