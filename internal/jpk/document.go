package jpk

import "encoding/xml"

const (
	NamespaceTNS = "http://crd.gov.pl/wzor/2021/12/27/11148/"
	NamespaceETD = "http://crd.gov.pl/xml/schematy/dziedzinowe/mf/2021/06/08/eD/DefinicjeTypy/"
	NamespaceXSI = "http://www.w3.org/2001/XMLSchema-instance"
)

// Document is the JPK_V7M filing tree. Element names carry their prefixes
// literally; the prefixes are bound by the xmlns attributes on the root.
type Document struct {
	XMLName     xml.Name    `xml:"tns:JPK"`
	XmlnsTNS    string      `xml:"xmlns:tns,attr"`
	XmlnsETD    string      `xml:"xmlns:etd,attr"`
	XmlnsXSI    string      `xml:"xmlns:xsi,attr"`
	Header      Header      `xml:"tns:Naglowek"`
	Filer       Filer       `xml:"tns:Podmiot1"`
	Declaration Declaration `xml:"tns:Deklaracja"`
	Ledger      Ledger      `xml:"tns:Ewidencja"`
}

type FormCode struct {
	Value         string `xml:",chardata"`
	SystemCode    string `xml:"kodSystemowy,attr"`
	SchemaVersion string `xml:"wersjaSchemy,attr"`
}

type Purpose struct {
	Value    int    `xml:",chardata"`
	Position string `xml:"poz,attr"`
}

type Header struct {
	FormCode    FormCode `xml:"tns:KodFormularza"`
	Variant     int      `xml:"tns:WariantFormularza"`
	GeneratedAt string   `xml:"tns:DataWytworzeniaJPK"`
	SystemName  string   `xml:"tns:NazwaSystemu"`
	Purpose     Purpose  `xml:"tns:CelZlozenia"`
	OfficeCode  string   `xml:"tns:KodUrzedu"`
	Year        int      `xml:"tns:Rok"`
	Month       int      `xml:"tns:Miesiac"`
}

type Filer struct {
	Role   string `xml:"rola,attr"`
	Person Person `xml:"tns:OsobaFizyczna"`
}

type Person struct {
	NIP       string `xml:"etd:NIP"`
	FirstName string `xml:"etd:ImiePierwsze,omitempty"`
	LastName  string `xml:"etd:Nazwisko,omitempty"`
	BirthDate string `xml:"etd:DataUrodzenia,omitempty"`
	Email     string `xml:"tns:Email,omitempty"`
	Phone     string `xml:"tns:Telefon,omitempty"`
}

type DeclarationFormCode struct {
	Value         string `xml:",chardata"`
	SystemCode    string `xml:"kodSystemowy,attr"`
	TaxCode       string `xml:"kodPodatku,attr"`
	LiabilityKind string `xml:"rodzajZobowiazania,attr"`
	SchemaVersion string `xml:"wersjaSchemy,attr"`
}

type DeclarationHeader struct {
	FormCode DeclarationFormCode `xml:"tns:KodFormularzaDekl"`
	Variant  int                 `xml:"tns:WariantFormularzaDekl"`
}

// Positions hold the declaration totals: P_19/P_37 net, P_20/P_38/P_51 VAT.
type Positions struct {
	P19 string `xml:"tns:P_19"`
	P20 string `xml:"tns:P_20"`
	P37 string `xml:"tns:P_37"`
	P38 string `xml:"tns:P_38"`
	P51 string `xml:"tns:P_51"`
}

type Declaration struct {
	Header       DeclarationHeader `xml:"tns:Naglowek"`
	Positions    Positions         `xml:"tns:PozycjeSzczegolowe"`
	Instructions int               `xml:"tns:Pouczenia"`
}

type SaleRow struct {
	No         int    `xml:"tns:LpSprzedazy"`
	BuyerNIP   string `xml:"tns:NrKontrahenta"`
	BuyerName  string `xml:"tns:NazwaKontrahenta"`
	DocumentNo string `xml:"tns:DowodSprzedazy"`
	IssueDate  string `xml:"tns:DataWystawienia"`
	SellDate   string `xml:"tns:DataSprzedazy,omitempty"`
	GTU12      int    `xml:"tns:GTU_12"`
	K19        string `xml:"tns:K_19"`
	K20        string `xml:"tns:K_20"`
}

type SalesControl struct {
	Rows   int    `xml:"tns:LiczbaWierszySprzedazy"`
	TaxDue string `xml:"tns:PodatekNalezny"`
}

type PurchaseControl struct {
	Rows          int    `xml:"tns:LiczbaWierszyZakupow"`
	InputTaxTotal string `xml:"tns:PodatekNaliczony"`
}

type Ledger struct {
	Sales           []SaleRow       `xml:"tns:SprzedazWiersz"`
	SalesControl    SalesControl    `xml:"tns:SprzedazCtrl"`
	PurchaseControl PurchaseControl `xml:"tns:ZakupCtrl"`
}
