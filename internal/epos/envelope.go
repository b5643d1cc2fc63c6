package epos

// ResponseEnvelope is the acknowledgement every handled POST gets, byte for
// byte. ePOS client libraries pattern-match this envelope (some check the
// status attribute, some the whole body), so it is deliberately a fixed
// blob: same bytes whether the hardware printed, failed, or was never
// contacted.
var ResponseEnvelope = []byte(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
<s:Body>
<response success="true" code="" status="123456" battery="0"/>
</s:Body>
</s:Envelope>`)

const (
	// ContentTypeXML accompanies the acknowledgement envelope.
	ContentTypeXML = "text/xml; charset=utf-8"

	// ContentTypePlain accompanies the health banner.
	ContentTypePlain = "text/plain"

	// HealthBanner answers GET health checks on any path.
	HealthBanner = "Printer proxy running"
)
