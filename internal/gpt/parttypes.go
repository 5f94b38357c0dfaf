package gpt

// Well-known partition type GUIDs.
var (
	TypeEFISystem          = MustParseGUID("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")
	TypeBIOSBoot           = MustParseGUID("21686148-6449-6E6F-744E-656564454649")
	TypeMicrosoftReserved  = MustParseGUID("E3C9E316-0B5C-4DB8-817D-F92DF00215AE")
	TypeMicrosoftBasicData = MustParseGUID("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")
	TypeWindowsRecovery    = MustParseGUID("DE94BBA4-06D1-4D40-A16A-BFD50179D6AC")
	TypeLinuxFilesystem    = MustParseGUID("0FC63DAF-8483-4772-8E79-3D69D8477DE4")
	TypeLinuxSwap          = MustParseGUID("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F")
	TypeLinuxLVM           = MustParseGUID("E6D6D379-F507-44C2-A23C-238F2A3DF928")
	TypeLinuxRAID          = MustParseGUID("A19D880F-05FC-4D3B-A006-743F0F84911E")
	TypeLinuxRootX86_64    = MustParseGUID("4F68BCE3-E8CD-4DB1-96E7-FBCAF984B709")
	TypeLinuxHome          = MustParseGUID("933AC7E1-2EB4-4F13-B844-0E14E2AEF915")
	TypeAppleAPFS          = MustParseGUID("7C3457EF-0000-11AA-AA11-00306543ECAC")
	TypeAppleHFSPlus       = MustParseGUID("48465300-0000-11AA-AA11-00306543ECAC")
	TypeFreeBSDUFS         = MustParseGUID("516E7CB6-6ECF-11D6-8FF8-00022D09712B")
	TypeChromeOSKernel     = MustParseGUID("FE3A2A5D-4F32-41A7-B725-ACCC3285A309")
)

var typeNames = map[GUID]string{
	TypeEFISystem:          "EFI System",
	TypeBIOSBoot:           "BIOS boot",
	TypeMicrosoftReserved:  "Microsoft reserved",
	TypeMicrosoftBasicData: "Microsoft basic data",
	TypeWindowsRecovery:    "Windows recovery",
	TypeLinuxFilesystem:    "Linux filesystem",
	TypeLinuxSwap:          "Linux swap",
	TypeLinuxLVM:           "Linux LVM",
	TypeLinuxRAID:          "Linux RAID",
	TypeLinuxRootX86_64:    "Linux root (x86-64)",
	TypeLinuxHome:          "Linux home",
	TypeAppleAPFS:          "Apple APFS",
	TypeAppleHFSPlus:       "Apple HFS+",
	TypeFreeBSDUFS:         "FreeBSD UFS",
	TypeChromeOSKernel:     "ChromeOS kernel",
}

// TypeName returns the name of a well-known partition type.
func TypeName(g GUID) (string, bool) {
	name, ok := typeNames[g]
	return name, ok
}
