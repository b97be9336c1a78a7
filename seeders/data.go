package seeders

type serviceTypeSeed struct {
	Code              string
	Name              string
	BasePrice         string
	EstimatedHours    string
	RequiresDiagnosis bool
	RequiresApproval  bool
	RequiresParts     bool
	AllowPhotos       bool
}

var serviceTypesData = []serviceTypeSeed{
	{Code: "DIAG", Name: "Диагностика", BasePrice: "500", EstimatedHours: "1", RequiresDiagnosis: true},
	{Code: "REPAIR", Name: "Ремонт", BasePrice: "1500", EstimatedHours: "3", RequiresDiagnosis: true, RequiresApproval: true, AllowPhotos: true},
	{Code: "PARTS", Name: "Замена запчастей", BasePrice: "800", EstimatedHours: "2", RequiresDiagnosis: true, RequiresApproval: true, RequiresParts: true},
	{Code: "MAINT", Name: "Плановое обслуживание", BasePrice: "1000", EstimatedHours: "2"},
	{Code: "INSTALL", Name: "Монтаж", BasePrice: "2500", EstimatedHours: "4", AllowPhotos: true},
}

type warehouseSeed struct {
	Code string
	Name string
}

var warehousesData = []warehouseSeed{
	{Code: "MAIN", Name: "Основной склад"},
	{Code: "VAN-1", Name: "Машина техника №1"},
	{Code: "VAN-2", Name: "Машина техника №2"},
}

type technicianSeed struct {
	UserID         uint64
	Name           string
	Phone          string
	AvailableHours string
	MaxDailyOrders int
	WarehouseCode  string
	Specialties    []string
}

var techniciansData = []technicianSeed{
	{UserID: 101, Name: "Иван Петров", Phone: "+79001112233", AvailableHours: "9-13,14-18", MaxDailyOrders: 3, WarehouseCode: "VAN-1", Specialties: []string{"холодильники", "стиральные машины"}},
	{UserID: 102, Name: "Сергей Смирнов", Phone: "+79004445566", AvailableHours: "8-12,13-17", MaxDailyOrders: 4, WarehouseCode: "VAN-2", Specialties: []string{"кондиционеры"}},
	{UserID: 103, Name: "Анна Кузнецова", Phone: "+79007778899", AvailableHours: "", MaxDailyOrders: 2, Specialties: []string{"диагностика"}},
}

type productSeed struct {
	SKU            string
	Name           string
	ListPrice      string
	Quantity       string
	AlertThreshold string
}

var productsData = []productSeed{
	{SKU: "CMP-001", Name: "Компрессор", ListPrice: "4500", Quantity: "6", AlertThreshold: "2"},
	{SKU: "FLT-010", Name: "Фильтр-осушитель", ListPrice: "350", Quantity: "40", AlertThreshold: "10"},
	{SKU: "FRN-R600", Name: "Хладагент R600a, кг", ListPrice: "1200", Quantity: "15.5", AlertThreshold: "3"},
	{SKU: "BLT-220", Name: "Ремень привода", ListPrice: "600", Quantity: "12", AlertThreshold: "4"},
	{SKU: "TMR-05", Name: "Таймер оттайки", ListPrice: "900", Quantity: "3", AlertThreshold: "3"},
}

type customerSeed struct {
	Code      string
	Name      string
	Email     string
	Phone     string
	Equipment []equipmentSeed
}

type equipmentSeed struct {
	Name          string
	EquipmentType string
	Brand         string
	Model         string
	SerialNumber  string
	WarrantyYears int
	Location      string
}

var customersData = []customerSeed{
	{
		Code: "ACME", Name: "ООО Акме", Email: "service@acme.example", Phone: "+74950000001",
		Equipment: []equipmentSeed{
			{Name: "Холодильная витрина №1", EquipmentType: "витрина", Brand: "Polair", Model: "DM105", SerialNumber: "PL-0001", WarrantyYears: 1, Location: "Торговый зал"},
			{Name: "Кондиционер офиса", EquipmentType: "кондиционер", Brand: "Daikin", Model: "FTXB35", SerialNumber: "DK-7781", Location: "2 этаж"},
		},
	},
	{
		Code: "BETA", Name: "ИП Бета", Email: "beta@example.com", Phone: "+74950000002",
		Equipment: []equipmentSeed{
			{Name: "Стиральная машина", EquipmentType: "стиральная машина", Brand: "Bosch", Model: "WAN24", SerialNumber: "BS-5520", WarrantyYears: -1},
		},
	},
}
