package mcpserver

// CatalogFormatContract describes the market catalog and trader file
// layout that LLM consumers should follow when editing documents.
const CatalogFormatContract = `# Marketeer Catalog Format Contract

A project has three folders: market catalogs (*.json), traders (*.json)
and type definitions (*.xml). Files are written whole, with four-space
indentation and a trailing newline, in the field order shown below.

## Market catalog

` + "```" + `json
{
    "DisplayName": "Assault Rifles",
    "Icon": "Deliver",
    "Color": "FBFCFEFF",
    "IsExchange": 0,
    "InitStockPercent": 75.0,
    "Items": [
        {
            "ClassName": "AKM",
            "MaxPriceThreshold": 1000,
            "MinPriceThreshold": 500,
            "SellPricePercent": -1.0,
            "MaxStockThreshold": 500,
            "MinStockThreshold": 1,
            "QuantityPercent": -1,
            "SpawnAttachments": [],
            "Variants": []
        }
    ]
}
` + "```" + `

## Trader

` + "```" + `json
{
    "DisplayName": "Gunsmith",
    "MinRequiredReputation": 0,
    "MaxRequiredReputation": 2147483647,
    "RequiredFaction": "",
    "RequiredCompletedQuestID": -1,
    "TraderIcon": "Deliver",
    "Categories": ["assault_rifles"],
    "Items": {"AKM": 1}
}
` + "```" + `

## Rules

1. **Color** is eight hex digits RRGGBBAA. It is stored upper-case.
2. **IsExchange** is 0 or 1 on disk.
3. **InitStockPercent** lies in [0, 100].
4. **SellPricePercent** is -1 (use the server default) or a value in [0.1, 1.0].
5. **QuantityPercent** is -1 (unset) or a whole percentage. Decimal input
   such as 12.7 is truncated to 12.
6. Field input is trimmed. Empty or unparsable input stores the default:
   0 for integers, -1 for SellPricePercent and QuantityPercent, empty for text.
7. **SpawnAttachments** and **Variants** are edited as one class name per line.
8. **Categories** name market files without the .json extension. A trader
   lists each category once.
9. Trader **Items** values are integers or strings. In text form each line
   is "ClassName: value".
10. Duplicate removal keeps the first occurrence of a class name (catalogs)
    or category (traders). Blank names are never treated as duplicates.
`
