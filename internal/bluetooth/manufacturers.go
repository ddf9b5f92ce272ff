package bluetooth

// LookupManufacturer returns a human-readable name for a Bluetooth SIG company ID,
// or an empty string when the ID is not known.
func LookupManufacturer(companyID uint16) string {
	return companyNames[companyID]
}

// fallbackName labels unnamed devices by manufacturer and the last two address octets.
func fallbackName(companyID uint16, address string) string {
	name := LookupManufacturer(companyID)
	if name == "" {
		return ""
	}

	if len(address) >= 5 {
		name += " " + address[len(address)-5:]
	}

	return name
}

//nolint:gochecknoglobals // Static lookup table.
var companyNames = map[uint16]string{
	0x0002: "Intel",
	0x0006: "Microsoft",
	0x000A: "Qualcomm",
	0x000D: "Texas Inst.",
	0x000F: "Broadcom",
	0x004C: "Apple",
	0x0059: "Nordic",
	0x0060: "Motorola",
	0x0075: "Samsung",
	0x0087: "Bose",
	0x00D2: "LG",
	0x00E0: "Google",
	0x012D: "Sony",
	0x0131: "JBL",
	0x0157: "Huawei",
	0x015D: "Espressif",
	0x0171: "Amazon",
	0x01DA: "Jabra",
	0x0246: "Logitech",
	0x0269: "Oura",
	0x02FF: "Tile",
	0x0310: "Xiaomi",
	0x038F: "Garmin",
	0x03DA: "Fitbit",
	0x0473: "Withings",
	0x0499: "Ruuvi",
	0x0822: "Tuya/Govee",
	0x0958: "IKEA",
}
